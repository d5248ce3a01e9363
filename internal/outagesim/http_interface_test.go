package outagesim

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const testUser = "testuser"
const testPassword = "testpassword"
const testPasswordHash = "$2a$08$icFrbtWXmEHXZJ9cZWqQJ.j3DA8r1fHwKs.gXEDpDjN3TzGRFFO.y"

func postCommand(t *testing.T, ts *httptest.Server, user, password, cmd string) int {
	tsURL, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	tsURL.User = url.UserPassword(user, password)
	r, err := http.Post(tsURL.String(), "text/plain", strings.NewReader(cmd))
	if err != nil {
		t.Fatalf("Got unexpected error: %s", err)
	}
	defer r.Body.Close()
	return r.StatusCode
}

func TestOutageEndpointHandler(t *testing.T) {
	testCases := []struct {
		name     string
		isUp     bool
		setUpErr error
		password string
		cmd      string
		expected int
	}{
		{"bring up", false, nil, testPassword, "up", http.StatusOK},
		{"bring up failed", false, fmt.Errorf("some error occurred"), testPassword, "up", http.StatusInternalServerError},
		{"already up", true, fmt.Errorf("must not be called"), testPassword, "up", http.StatusOK},
		{"bring down", true, nil, testPassword, "down", http.StatusOK},
		{"bring down failed", true, fmt.Errorf("some error occurred"), testPassword, "down", http.StatusInternalServerError},
		{"already down", false, fmt.Errorf("must not be called"), testPassword, "down", http.StatusOK},
		{"bad password", true, nil, "wrong", "down", http.StatusUnauthorized},
		{"unknown command", true, nil, testPassword, "sideways", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(
				MakeOutageEndpointHandler(
					testUser,
					testPasswordHash,
					func() bool { return tc.isUp },
					func(bool) error { return tc.setUpErr },
				),
			))
			defer ts.Close()

			if code := postCommand(t, ts, testUser, tc.password, tc.cmd); code != tc.expected {
				t.Fatalf("Expected status code %d, got %d", tc.expected, code)
			}
		})
	}
}

func TestInvalidHTTPMethod(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(
		MakeOutageEndpointHandler(
			testUser,
			testPasswordHash,
			func() bool { return true },
			func(bool) error { return nil },
		),
	))
	defer ts.Close()

	r, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("Got unexpected error: %s", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("Expected status code %d, got %d", http.StatusMethodNotAllowed, r.StatusCode)
	}
}

func TestControlEndpointTogglesServer(t *testing.T) {
	srv := NewServer(true)
	ts := httptest.NewServer(http.HandlerFunc(
		MakeOutageEndpointHandler(testUser, testPasswordHash, srv.IsUp, srv.SetUp),
	))
	defer ts.Close()

	if code := postCommand(t, ts, testUser, testPassword, "down"); code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, code)
	}
	if srv.IsUp() {
		t.Fatal("expected server to be down")
	}
	if code := postCommand(t, ts, testUser, testPassword, "up"); code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, code)
	}
	if !srv.IsUp() {
		t.Fatal("expected server to be up")
	}
}
