//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"testing"
	"time"
)

func newWebhookRequest(t *testing.T, payload []byte, signature string) *http.Request {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		baseURL+"/api/v1/payments/webhook", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)
	return req
}

// createStructureAndRoom provisions a structure with one bookable room as the
// admin and returns both IDs. Each call uses a unique CIS code so tests stay
// independent.
func createStructureAndRoom(t *testing.T, adminToken string) (structureID, roomID string) {
	t.Helper()

	cis := fmt.Sprintf("IT%012d", time.Now().UnixNano()%1e12)
	resp := doPostAuth(t, "/api/v1/structures", map[string]any{
		"name":    "Casa Test",
		"address": "Via Roma 1, Palermo",
		"cis":     cis,
	}, adminToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create structure: expected 201, got %d", resp.StatusCode)
	}
	s := decodeJSON[structureResponse](t, resp)

	rr := doPostAuth(t, "/api/v1/rooms", map[string]any{
		"structureId":  s.ID,
		"name":         "Suite 1",
		"costPerNight": "120.00",
		"maxPeople":    3,
	}, adminToken)
	defer rr.Body.Close()
	if rr.StatusCode != http.StatusCreated {
		t.Fatalf("create room: expected 201, got %d", rr.StatusCode)
	}
	rm := decodeJSON[roomResponse](t, rr)

	return s.ID, rm.ID
}

func TestReservationLifecycle(t *testing.T) {
	adminToken := loginAdmin(t)
	_, roomID := createStructureAndRoom(t, adminToken)
	customer := registerCustomer(t, fmt.Sprintf("lifecycle-%d@integration.test", time.Now().UnixNano()))

	checkIn := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	checkOut := time.Now().UTC().AddDate(0, 0, 9).Format("2006-01-02")

	resp := doPostAuth(t, "/api/v1/reservations", map[string]any{
		"roomId":         roomID,
		"checkIn":        checkIn,
		"checkOut":       checkOut,
		"numberOfPeople": 2,
	}, customer)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create reservation: expected 201, got %d", resp.StatusCode)
	}
	rv := decodeJSON[reservationResponse](t, resp)

	if rv.Status != "UNPAID" {
		t.Errorf("status: got %q, want UNPAID", rv.Status)
	}
	if rv.TotalCost != "240.00" {
		t.Errorf("totalCost: got %q, want 240.00", rv.TotalCost)
	}
	if rv.PaymentIntentID == "" {
		t.Error("paymentIntentId not set")
	}

	// The same dates are now rejected for a second booking.
	conflict := doPostAuth(t, "/api/v1/reservations", map[string]any{
		"roomId":         roomID,
		"checkIn":        checkIn,
		"checkOut":       checkOut,
		"numberOfPeople": 1,
	}, customer)
	defer conflict.Body.Close()
	if conflict.StatusCode != http.StatusConflict {
		t.Fatalf("overlapping reservation: expected 409, got %d", conflict.StatusCode)
	}

	// Availability reflects the booked nights.
	av := doGet(t, "/api/v1/rooms/"+roomID+"/availability?from="+checkIn+"&to="+checkOut)
	defer av.Body.Close()
	if av.StatusCode != http.StatusOK {
		t.Fatalf("availability: expected 200, got %d", av.StatusCode)
	}
	availability := decodeJSON[availabilityResponse](t, av)
	if !slices.Contains(availability.BusyDates, checkIn) {
		t.Errorf("busyDates %v does not contain check-in %s", availability.BusyDates, checkIn)
	}
	if slices.Contains(availability.BusyDates, checkOut) {
		t.Errorf("busyDates %v contains check-out %s, but that night is free", availability.BusyDates, checkOut)
	}

	// Cancelling frees the dates again.
	cancel := doPostAuth(t, "/api/v1/reservations/"+rv.ID+"/cancel", nil, customer)
	defer cancel.Body.Close()
	if cancel.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", cancel.StatusCode)
	}
	if got := decodeJSON[reservationResponse](t, cancel).Status; got != "CANCELED" {
		t.Errorf("status after cancel: got %q, want CANCELED", got)
	}

	retry := doPostAuth(t, "/api/v1/reservations", map[string]any{
		"roomId":         roomID,
		"checkIn":        checkIn,
		"checkOut":       checkOut,
		"numberOfPeople": 1,
	}, customer)
	defer retry.Body.Close()
	if retry.StatusCode != http.StatusCreated {
		t.Fatalf("rebook after cancel: expected 201, got %d", retry.StatusCode)
	}
}

func TestReservationRequiresCompleteProfile(t *testing.T) {
	adminToken := loginAdmin(t)
	_, roomID := createStructureAndRoom(t, adminToken)

	// Register without completing the profile.
	resp := doPost(t, "/api/v1/auth/register", map[string]any{
		"email":            fmt.Sprintf("pending-%d@integration.test", time.Now().UnixNano()),
		"password":         "customer-password",
		"hasAcceptedTerms": true,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	token := decodeJSON[tokenResponse](t, resp).AccessToken

	rr := doPostAuth(t, "/api/v1/reservations", map[string]any{
		"roomId":         roomID,
		"checkIn":        time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02"),
		"checkOut":       time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02"),
		"numberOfPeople": 1,
	}, token)
	defer rr.Body.Close()
	if rr.StatusCode != http.StatusForbidden {
		t.Fatalf("reservation with pending profile: expected 403, got %d", rr.StatusCode)
	}
}

func TestAdminGuards(t *testing.T) {
	customer := registerCustomer(t, fmt.Sprintf("guard-%d@integration.test", time.Now().UnixNano()))

	resp := doPostAuth(t, "/api/v1/structures", map[string]any{
		"name": "Nope",
		"cis":  "IT000000000000",
	}, customer)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer creating structure: expected 403, got %d", resp.StatusCode)
	}

	anon := doPost(t, "/api/v1/structures", map[string]any{
		"name": "Nope",
		"cis":  "IT000000000000",
	})
	defer anon.Body.Close()
	if anon.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous creating structure: expected 401, got %d", anon.StatusCode)
	}
}

func TestPaymentWebhook(t *testing.T) {
	adminToken := loginAdmin(t)
	_, roomID := createStructureAndRoom(t, adminToken)
	customer := registerCustomer(t, fmt.Sprintf("payment-%d@integration.test", time.Now().UnixNano()))

	resp := doPostAuth(t, "/api/v1/reservations", map[string]any{
		"roomId":         roomID,
		"checkIn":        time.Now().UTC().AddDate(0, 0, 14).Format("2006-01-02"),
		"checkOut":       time.Now().UTC().AddDate(0, 0, 15).Format("2006-01-02"),
		"numberOfPeople": 1,
	}, customer)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create reservation: expected 201, got %d", resp.StatusCode)
	}
	rv := decodeJSON[reservationResponse](t, resp)

	payload, _ := json.Marshal(map[string]any{
		"type": "payment_intent.succeeded",
		"data": map[string]any{"object": map[string]any{"id": rv.PaymentIntentID}},
	})

	req := newWebhookRequest(t, payload, signWebhook(payload, webhookSecret, time.Now()))
	whResp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	defer whResp.Body.Close()
	if whResp.StatusCode != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d", whResp.StatusCode)
	}

	// The reservation is now paid.
	get := doGetAuth(t, "/api/v1/reservations/"+rv.ID, customer)
	defer get.Body.Close()
	if got := decodeJSON[reservationResponse](t, get).Status; got != "PAID" {
		t.Errorf("status after webhook: got %q, want PAID", got)
	}

	// A bad signature is rejected before any processing.
	badReq := newWebhookRequest(t, payload, signWebhook(payload, "wrong-secret", time.Now()))
	badResp, err := httpClient.Do(badReq)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	defer badResp.Body.Close()
	if badResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad signature: expected 400, got %d", badResp.StatusCode)
	}
}
