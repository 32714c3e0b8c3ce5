package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoteldesk/backend/pkg/auth"
	"github.com/hoteldesk/backend/pkg/config"
	"github.com/hoteldesk/backend/services/reservations/internal/clients"
	"github.com/hoteldesk/backend/services/reservations/internal/domain"
	"github.com/hoteldesk/backend/services/reservations/internal/handlers"
	"github.com/hoteldesk/backend/services/reservations/internal/service"
)

const testSecret = "test-secret"

// ---------- Mocks ----------

type mockReservationRepo struct {
	nextID       int64
	reservations map[int64]*domain.Reservation
	invoices     *mockInvoiceRepo
}

func newMockReservationRepo(invoices *mockInvoiceRepo) *mockReservationRepo {
	return &mockReservationRepo{
		nextID:       1,
		reservations: make(map[int64]*domain.Reservation),
		invoices:     invoices,
	}
}

func (m *mockReservationRepo) CreateWithInvoice(_ context.Context, res *domain.Reservation, amount float64) (*domain.Reservation, *domain.Invoice, error) {
	stored := *res
	stored.ID = m.nextID
	stored.Status = domain.StatusConfirmed
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = time.Now()
	m.nextID++
	m.reservations[stored.ID] = &stored

	invoice := m.invoices.add(stored.ID, amount)

	resCopy := stored
	invCopy := *invoice
	return &resCopy, &invCopy, nil
}

func (m *mockReservationRepo) FindByID(_ context.Context, id int64) (*domain.Reservation, error) {
	res, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	copied := *res
	return &copied, nil
}

func (m *mockReservationRepo) List(_ context.Context, clientID *int64, limit, offset int) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, res := range m.reservations {
		if clientID != nil && res.ClientID != *clientID {
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

func (m *mockReservationRepo) Update(_ context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	stored, ok := m.reservations[res.ID]
	if !ok {
		return nil, nil
	}
	stored.RoomID = res.RoomID
	stored.CheckIn = res.CheckIn
	stored.CheckOut = res.CheckOut
	stored.UpdatedAt = time.Now()
	copied := *stored
	return &copied, nil
}

func (m *mockReservationRepo) UpdateStatus(_ context.Context, id int64, status string) (*domain.Reservation, error) {
	stored, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	stored.Status = status
	stored.UpdatedAt = time.Now()
	copied := *stored
	return &copied, nil
}

func (m *mockReservationRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.reservations[id]; !ok {
		return fmt.Errorf("not found")
	}
	delete(m.reservations, id)
	m.invoices.deleteByReservation(id)
	return nil
}

type mockInvoiceRepo struct {
	nextID       int64
	invoices     map[int64]*domain.Invoice
	reservations map[int64]*domain.Reservation // shared with reservation repo
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{nextID: 1, invoices: make(map[int64]*domain.Invoice)}
}

func (m *mockInvoiceRepo) add(reservationID int64, amount float64) *domain.Invoice {
	inv := &domain.Invoice{
		ID:            m.nextID,
		ReservationID: reservationID,
		Amount:        amount,
		Status:        domain.InvoiceIssued,
		IssuedAt:      time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.nextID++
	m.invoices[inv.ID] = inv
	return inv
}

func (m *mockInvoiceRepo) deleteByReservation(reservationID int64) {
	for id, inv := range m.invoices {
		if inv.ReservationID == reservationID {
			delete(m.invoices, id)
		}
	}
}

func (m *mockInvoiceRepo) FindByID(_ context.Context, id int64) (*domain.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	copied := *inv
	return &copied, nil
}

func (m *mockInvoiceRepo) FindByReservation(_ context.Context, reservationID int64) (*domain.Invoice, error) {
	for _, inv := range m.invoices {
		if inv.ReservationID == reservationID {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockInvoiceRepo) List(_ context.Context, limit, offset int) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (m *mockInvoiceRepo) UpdateAmount(_ context.Context, id int64, amount float64) (*domain.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	inv.Amount = amount
	inv.UpdatedAt = time.Now()
	copied := *inv
	return &copied, nil
}

func (m *mockInvoiceRepo) MarkPaid(_ context.Context, id int64) (*domain.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	inv.Status = domain.InvoicePaid
	inv.UpdatedAt = time.Now()
	if res, ok := m.reservations[inv.ReservationID]; ok {
		res.Status = domain.StatusConfirmed
	}
	copied := *inv
	return &copied, nil
}

type mockMailer struct {
	lastTo      string
	lastInvoice int64
	lastAmount  float64
	sendErr     error
}

func (m *mockMailer) Send(toEmail, toName, subject, text, html string) error { return m.sendErr }

func (m *mockMailer) SendPasswordResetEmail(toEmail, toName, code string) error { return m.sendErr }

func (m *mockMailer) SendInvoiceEmail(toEmail string, invoiceID int64, amount float64) error {
	m.lastTo = toEmail
	m.lastInvoice = invoiceID
	m.lastAmount = amount
	return m.sendErr
}

// fakeRooms stands in for the external rooms service.
type fakeRooms struct {
	rooms         map[int64]clients.Room
	statusUpdates map[int64]string
	getStatus     int // non-zero forces this status on GET
	putStatus     int // non-zero forces this status on PUT
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		rooms:         make(map[int64]clients.Room),
		statusUpdates: make(map[int64]string),
	}
}

func (f *fakeRooms) server(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/rooms/{id}", func(w http.ResponseWriter, req *http.Request) {
		if f.getStatus != 0 {
			w.WriteHeader(f.getStatus)
			return
		}
		var id int64
		fmt.Sscanf(chi.URLParam(req, "id"), "%d", &id)
		room, ok := f.rooms[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(room)
	})
	r.Put("/api/rooms/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		if f.putStatus != 0 {
			w.WriteHeader(f.putStatus)
			return
		}
		var id int64
		fmt.Sscanf(chi.URLParam(req, "id"), "%d", &id)
		var body struct {
			Status string `json:"status"`
		}
		json.NewDecoder(req.Body).Decode(&body)
		f.statusUpdates[id] = body.Status
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

// fakeUsers stands in for the users service peer endpoints.
type fakeUsers struct {
	known map[int64]clients.UserSummary
}

func (f *fakeUsers) server(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/users/exists/{id}", func(w http.ResponseWriter, req *http.Request) {
		var id int64
		fmt.Sscanf(chi.URLParam(req, "id"), "%d", &id)
		_, ok := f.known[id]
		json.NewEncoder(w).Encode(map[string]bool{"exists": ok})
	})
	r.Get("/api/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		var id int64
		fmt.Sscanf(chi.URLParam(req, "id"), "%d", &id)
		user, ok := f.known[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(user)
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

// ---------- Test setup ----------

type fixture struct {
	server  *httptest.Server
	resRepo *mockReservationRepo
	invRepo *mockInvoiceRepo
	rooms   *fakeRooms
	mail    *mockMailer
	token   string
}

func setup(t *testing.T) *fixture {
	t.Helper()

	invRepo := newMockInvoiceRepo()
	resRepo := newMockReservationRepo(invRepo)
	invRepo.reservations = resRepo.reservations

	rooms := newFakeRooms()
	roomsServer := rooms.server(t)

	users := &fakeUsers{known: map[int64]clients.UserSummary{
		7: {ID: 7, Name: "Amina", Surname: "Berrada", Email: "amina@example.com"},
	}}
	usersServer := users.server(t)

	mail := &mockMailer{}

	cfg := config.Load()
	cfg.Auth.JWTSecret = testSecret

	roomsClient := clients.NewRoomsClient(roomsServer.URL, "")
	usersClient := clients.NewUsersClient(usersServer.URL)

	reservationService := service.NewReservationService(resRepo, invRepo, roomsClient, usersClient, nil)
	invoiceService := service.NewInvoiceService(invRepo, resRepo, usersClient, mail, nil)

	h := handlers.New(reservationService, invoiceService, cfg)
	r := chi.NewRouter()
	h.Routes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	token, err := auth.NewToken(7, "amina@example.com", "CLIENT", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	return &fixture{server: server, resRepo: resRepo, invRepo: invRepo, rooms: rooms, mail: mail, token: token}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, wantStatus int) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	return resp
}

func createRequest(clientID, roomID int64, nights int) map[string]interface{} {
	checkIn := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return map[string]interface{}{
		"client_id": clientID,
		"room_id":   roomID,
		"check_in":  checkIn.Format(time.RFC3339),
		"check_out": checkIn.AddDate(0, 0, nights).Format(time.RFC3339),
	}
}

// ---------- Tests ----------

func TestCreateReservation_PricesFromRoom(t *testing.T) {
	f := setup(t)
	price := 150.0
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree, Price: &price}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 2), http.StatusCreated)
	defer resp.Body.Close()

	var result domain.ReservationWithInvoice
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if result.Status != domain.StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", result.Status)
	}
	if result.Invoice == nil || result.Invoice.Status != domain.InvoiceIssued {
		t.Fatalf("expected issued invoice, got %+v", result.Invoice)
	}
	if result.Invoice.Amount != 300.0 {
		t.Fatalf("expected amount 300.00 (2 nights x 150), got %.2f", result.Invoice.Amount)
	}
	if got := f.rooms.statusUpdates[3]; got != clients.RoomStatusOccupied {
		t.Fatalf("room should be occupied after booking, got %q", got)
	}
}

func TestCreateReservation_PricesHotelHoursStay(t *testing.T) {
	f := setup(t)
	price := 150.0
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree, Price: &price}

	body := map[string]interface{}{
		"client_id": 7,
		"room_id":   3,
		"check_in":  time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"check_out": time.Date(2026, 9, 3, 11, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}

	resp := f.do(t, http.MethodPost, "/api/reservations", body, http.StatusCreated)
	defer resp.Body.Close()

	var result domain.ReservationWithInvoice
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if result.Invoice == nil {
		t.Fatal("expected an issued invoice")
	}
	if result.Invoice.Amount != 300.0 {
		t.Fatalf("expected amount 300.00 (2 calendar nights x 150), got %.2f", result.Invoice.Amount)
	}
}

func TestCreateReservation_DefaultNightlyPrice(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[4] = clients.Room{ID: 4, Status: clients.RoomStatusFree} // no price

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 4, 3), http.StatusCreated)
	defer resp.Body.Close()

	var result domain.ReservationWithInvoice
	json.NewDecoder(resp.Body).Decode(&result)

	if result.Invoice.Amount != 300.0 {
		t.Fatalf("expected amount 300.00 (3 nights x default 100), got %.2f", result.Invoice.Amount)
	}
}

func TestCreateReservation_RoomNotFree(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[5] = clients.Room{ID: 5, Status: clients.RoomStatusOccupied}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 5, 2), http.StatusConflict)
	resp.Body.Close()

	if len(f.resRepo.reservations) != 0 {
		t.Fatal("no reservation should be created for an occupied room")
	}
}

func TestCreateReservation_RoomLookupFailure(t *testing.T) {
	f := setup(t)
	f.rooms.getStatus = http.StatusInternalServerError

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 5, 2), http.StatusConflict)
	resp.Body.Close()
}

func TestCreateReservation_UnknownClient(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(999, 3, 2), http.StatusBadRequest)
	resp.Body.Close()
}

func TestCreateReservation_ZeroNights(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 0), http.StatusBadRequest)
	resp.Body.Close()
}

func TestCreateReservation_RoomOccupyFailureDoesNotRollBack(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}
	f.rooms.putStatus = http.StatusInternalServerError

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 2), http.StatusCreated)
	resp.Body.Close()

	if len(f.resRepo.reservations) != 1 {
		t.Fatal("reservation must survive a failed room status update")
	}
}

func TestCancelReservation_ReleasesRoom(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 2), http.StatusCreated)
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/reservations/1/cancel", nil, http.StatusOK)
	defer resp.Body.Close()

	var res domain.Reservation
	json.NewDecoder(resp.Body).Decode(&res)
	if res.Status != domain.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", res.Status)
	}
	if got := f.rooms.statusUpdates[3]; got != clients.RoomStatusFree {
		t.Fatalf("room should be freed after cancel, got %q", got)
	}
}

func TestCompleteReservation(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 2), http.StatusCreated)
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/reservations/1/complete", nil, http.StatusOK)
	defer resp.Body.Close()

	var res domain.Reservation
	json.NewDecoder(resp.Body).Decode(&res)
	if res.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", res.Status)
	}
}

func TestUpdateReservation_RepricesInvoice(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 2), http.StatusCreated)
	resp.Body.Close()

	checkIn := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	nightly := 200.0
	update := map[string]interface{}{
		"check_out":     checkIn.AddDate(0, 0, 4).Format(time.RFC3339),
		"nightly_price": nightly,
	}

	resp = f.do(t, http.MethodPut, "/api/reservations/1", update, http.StatusOK)
	defer resp.Body.Close()

	var result domain.ReservationWithInvoice
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Invoice.Amount != 800.0 {
		t.Fatalf("expected repriced amount 800.00 (4 nights x 200), got %.2f", result.Invoice.Amount)
	}
}

func TestPayInvoice_SettlesAndEmails(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 2), http.StatusCreated)
	resp.Body.Close()

	resp = f.do(t, http.MethodPut, "/api/invoices/1/pay", nil, http.StatusOK)
	defer resp.Body.Close()

	var invoice domain.Invoice
	json.NewDecoder(resp.Body).Decode(&invoice)
	if invoice.Status != domain.InvoicePaid {
		t.Fatalf("expected PAID, got %s", invoice.Status)
	}
	if f.resRepo.reservations[1].Status != domain.StatusConfirmed {
		t.Fatalf("reservation should stay CONFIRMED after payment")
	}
	if f.mail.lastTo != "amina@example.com" || f.mail.lastInvoice != 1 {
		t.Fatalf("invoice email not sent to client: to=%q invoice=%d", f.mail.lastTo, f.mail.lastInvoice)
	}

	// Paying again still succeeds and changes nothing.
	resp = f.do(t, http.MethodPut, "/api/invoices/1/pay", nil, http.StatusOK)
	resp.Body.Close()
	if f.invRepo.invoices[1].Status != domain.InvoicePaid {
		t.Fatal("invoice should remain PAID")
	}
}

func TestPayInvoice_EmailFailureSwallowed(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}
	f.mail.sendErr = fmt.Errorf("smtp down")

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 2), http.StatusCreated)
	resp.Body.Close()

	resp = f.do(t, http.MethodPut, "/api/invoices/1/pay", nil, http.StatusOK)
	resp.Body.Close()
}

func TestPayInvoice_NotFound(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodPut, "/api/invoices/42/pay", nil, http.StatusNotFound)
	resp.Body.Close()
}

func TestListReservations_ClientFilter(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}
	f.rooms.rooms[4] = clients.Room{ID: 4, Status: clients.RoomStatusFree}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 2), http.StatusCreated)
	resp.Body.Close()
	resp = f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 4, 1), http.StatusCreated)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/reservations?clientId=7", nil, http.StatusOK)
	defer resp.Body.Close()

	var reservations []domain.Reservation
	json.NewDecoder(resp.Body).Decode(&reservations)
	if len(reservations) != 2 {
		t.Fatalf("expected 2 reservations for client 7, got %d", len(reservations))
	}

	resp = f.do(t, http.MethodGet, "/api/reservations?clientId=999", nil, http.StatusOK)
	defer resp.Body.Close()

	var empty []domain.Reservation
	json.NewDecoder(resp.Body).Decode(&empty)
	if len(empty) != 0 {
		t.Fatalf("expected no reservations for client 999, got %d", len(empty))
	}
}

func TestReservations_RequireJWT(t *testing.T) {
	f := setup(t)

	req, _ := http.NewRequest(http.MethodGet, f.server.URL+"/api/reservations", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestDeleteReservation_CascadesInvoice(t *testing.T) {
	f := setup(t)
	f.rooms.rooms[3] = clients.Room{ID: 3, Status: clients.RoomStatusFree}

	resp := f.do(t, http.MethodPost, "/api/reservations", createRequest(7, 3, 2), http.StatusCreated)
	resp.Body.Close()

	resp = f.do(t, http.MethodDelete, "/api/reservations/1", nil, http.StatusOK)
	resp.Body.Close()

	if len(f.resRepo.reservations) != 0 || len(f.invRepo.invoices) != 0 {
		t.Fatal("reservation and invoice should both be gone")
	}
}
