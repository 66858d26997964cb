package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/carpolicy/pkg/client"
	"github.com/naveenspark/carpolicy/pkg/domain"
)

func newTestApp() App {
	a := NewApp(context.Background(), nil, "test")
	a.width = 80
	a.height = 30
	return a
}

func signedIn(a App, admin bool) App {
	s := &domain.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         domain.SessionUser{UserID: 1, Username: "alice", Email: "alice@example.com", IsAdmin: admin},
	}
	model, _ := a.Update(sessionLoadedMsg{session: s})
	return model.(App)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func expiredErr() error {
	return fmt.Errorf("client.MyPolicies: %w", &client.HTTPError{
		StatusCode: 401,
		Message:    client.MsgSessionExpired,
		Cause:      fmt.Errorf("%w: %w", client.ErrSessionExpired, errors.New("request rejected after refresh")),
	})
}

func samplePolicies() []domain.PolicyWithExtras {
	return []domain.PolicyWithExtras{
		{Policy: domain.CarInsurancePolicy{PolicyID: 1, PolicyNumber: "CI10001", VRN: "AB12CDE", Make: "Ford", Model: "Focus", Coverage: "Comprehensive", EndDate: "2026-06-14"}},
		{Policy: domain.CarInsurancePolicy{PolicyID: 2, PolicyNumber: "CI10002", VRN: "XY34ZZZ", Make: "Vauxhall", Model: "Corsa", Coverage: "Third Party", EndDate: "2026-01-31"}},
	}
}

func TestAppTabSwitching(t *testing.T) {
	tests := []struct {
		key      string
		admin    bool
		wantView view
	}{
		{"1", false, viewPolicies},
		{"2", false, viewExtras},
		{"3", false, viewProfile},
		{"4", false, viewPolicies},
		{"4", true, viewUsers},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s admin=%v", tc.key, tc.admin), func(t *testing.T) {
			a := signedIn(newTestApp(), tc.admin)
			model, _ := a.Update(key(tc.key))
			a = model.(App)
			if a.view != tc.wantView {
				t.Errorf("after key %q: expected view=%d, got %d", tc.key, tc.wantView, a.view)
			}
		})
	}
}

func TestAppSessionLoadedSetsAdminScope(t *testing.T) {
	a := signedIn(newTestApp(), true)
	if !a.policies.admin {
		t.Error("admin session should load every policy")
	}
	if a.profile.session == nil || a.profile.session.User.Username != "alice" {
		t.Error("profile did not receive the session")
	}
	if !strings.Contains(a.View(), "Users") {
		t.Error("admin tab bar should include Users")
	}

	b := signedIn(newTestApp(), false)
	if b.policies.admin {
		t.Error("regular session should only load its own policies")
	}
	if strings.Contains(b.View(), "4 Users") {
		t.Error("regular tab bar should not include Users")
	}
}

func TestAppNoSessionShowsExpiredOverlay(t *testing.T) {
	a := newTestApp()
	model, _ := a.Update(sessionLoadedMsg{})
	a = model.(App)
	if !a.expired {
		t.Fatal("expected expired overlay without a stored session")
	}
	if !strings.Contains(a.View(), "Session expired. Please log in again.") {
		t.Errorf("expired view missing message:\n%s", a.View())
	}

	// Navigation keys are swallowed, enter quits.
	model, cmd := a.Update(key("2"))
	a = model.(App)
	if a.view != viewPolicies || cmd != nil {
		t.Error("expired overlay should swallow tab keys")
	}
	_, cmd = a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !isQuit(cmd) {
		t.Error("enter on the expired overlay should quit")
	}
}

func TestAppSessionExpiryFromAnyResult(t *testing.T) {
	msgs := []tea.Msg{
		policiesLoadedMsg{err: expiredErr()},
		extrasLoadedMsg{err: expiredErr()},
		usersLoadedMsg{err: expiredErr()},
		verifiedMsg{err: expiredErr()},
		detailLoadedMsg{err: fmt.Errorf("client.GetPolicy: %w", expiredErr())},
		policyDeletedMsg{id: 1, err: expiredErr()},
		refreshedMsg{err: fmt.Errorf("client.Refresh: %w", client.ErrNoSession)},
	}
	for _, msg := range msgs {
		t.Run(fmt.Sprintf("%T", msg), func(t *testing.T) {
			a := signedIn(newTestApp(), false)
			a.detailOpen = true
			model, _ := a.Update(msg)
			a = model.(App)
			if !a.expired {
				t.Error("expected expired overlay")
			}
			if a.detailOpen {
				t.Error("expiry should close the detail overlay")
			}
		})
	}
}

func TestAppOtherErrorsStayInView(t *testing.T) {
	a := signedIn(newTestApp(), false)
	netErr := &client.HTTPError{Message: client.MsgNetworkError, Cause: errors.New("connection refused")}
	model, _ := a.Update(policiesLoadedMsg{err: netErr})
	a = model.(App)
	if a.expired {
		t.Fatal("a network error must not end the session")
	}
	if !strings.Contains(a.View(), client.MsgNetworkError) {
		t.Errorf("policies view should show the error:\n%s", a.View())
	}
}

func TestAppRoutesResultsToInactiveTabs(t *testing.T) {
	a := signedIn(newTestApp(), false)
	model, _ := a.Update(key("2"))
	a = model.(App)

	model, _ = a.Update(policiesLoadedMsg{policies: samplePolicies()})
	a = model.(App)
	if len(a.policies.policies) != 2 || a.policies.loading {
		t.Errorf("policies not loaded while on the extras tab: %+v", a.policies)
	}
}

func TestAppDetailOverlayOpenAndClose(t *testing.T) {
	a := signedIn(newTestApp(), false)

	model, cmd := a.Update(showDetailMsg{policy: samplePolicies()[0]})
	a = model.(App)
	if !a.detailOpen {
		t.Fatal("expected detailOpen=true after showDetailMsg")
	}
	if cmd == nil {
		t.Error("opening the overlay should refetch the policy")
	}
	if !strings.Contains(a.View(), "CI10001") {
		t.Error("detail view should show the policy number")
	}

	// Tab keys are captured by the overlay.
	model, _ = a.Update(key("2"))
	a = model.(App)
	if a.view != viewPolicies || !a.detailOpen {
		t.Error("overlay should capture tab keys")
	}

	model, _ = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	a = model.(App)
	if a.detailOpen {
		t.Error("expected detailOpen=false after Esc")
	}
}

func TestAppDeletedPolicyReloadsList(t *testing.T) {
	a := signedIn(newTestApp(), false)
	model, _ := a.Update(policiesLoadedMsg{policies: samplePolicies()})
	a = model.(App)
	model, _ = a.Update(showDetailMsg{policy: samplePolicies()[0]})
	a = model.(App)

	model, cmd := a.Update(policyDeletedMsg{id: 1})
	a = model.(App)
	if a.detailOpen {
		t.Error("deleting should close the overlay")
	}
	if !a.policies.loading || cmd == nil {
		t.Error("deleting should reload the policy list")
	}
}

func TestAppGlobalQuitOnQ(t *testing.T) {
	a := signedIn(newTestApp(), false)
	_, cmd := a.Update(key("q"))
	if !isQuit(cmd) {
		t.Fatal("expected quit command on 'q'")
	}
}

func TestAppFilterCapturesKeys(t *testing.T) {
	a := signedIn(newTestApp(), false)
	model, _ := a.Update(policiesLoadedMsg{policies: samplePolicies()})
	a = model.(App)

	model, _ = a.Update(key("/"))
	a = model.(App)
	if !a.isEditing() {
		t.Fatal("expected filter mode after '/'")
	}
	for _, k := range []string{"q", "2"} {
		var cmd tea.Cmd
		model, cmd = a.Update(key(k))
		a = model.(App)
		if isQuit(cmd) || a.view != viewPolicies {
			t.Fatalf("key %q escaped the filter input", k)
		}
	}
	if a.policies.query != "q2" {
		t.Errorf("query = %q, want %q", a.policies.query, "q2")
	}

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Error("ctrl+c should quit even while filtering")
	}
}

func TestAppHelpOverlay(t *testing.T) {
	a := signedIn(newTestApp(), false)
	model, _ := a.Update(key("h"))
	a = model.(App)
	if !a.helpOpen {
		t.Fatal("expected help overlay after 'h'")
	}
	if !strings.Contains(a.View(), "carpolicy login") {
		t.Error("help overlay should list commands")
	}
	model, _ = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	a = model.(App)
	if a.helpOpen {
		t.Error("esc should close help")
	}
}

func TestAppViewFitsHeight(t *testing.T) {
	a := signedIn(newTestApp(), true)
	many := make([]domain.PolicyWithExtras, 100)
	for i := range many {
		many[i] = samplePolicies()[i%2]
	}
	model, _ := a.Update(policiesLoadedMsg{policies: many})
	a = model.(App)
	if lines := strings.Count(a.View(), "\n") + 1; lines > a.height {
		t.Errorf("view has %d lines, terminal height is %d", lines, a.height)
	}
}
