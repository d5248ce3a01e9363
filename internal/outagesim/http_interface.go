package outagesim

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

func respond(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	fmt.Fprint(w, msg+"\n")
}

func serviceUp(w http.ResponseWriter, isUpFn func() bool, setUpFn func(bool) error) {
	if isUpFn() {
		respond(w, http.StatusOK, "Service is already up")
		return
	}
	if err := setUpFn(true); err != nil {
		respond(w, http.StatusInternalServerError, "Failed to bring service up")
		return
	}
	respond(w, http.StatusOK, "Service successfully brought up")
}

func serviceDown(w http.ResponseWriter, isUpFn func() bool, setUpFn func(bool) error) {
	if !isUpFn() {
		respond(w, http.StatusOK, "Service is already down")
		return
	}
	if err := setUpFn(false); err != nil {
		respond(w, http.StatusInternalServerError, "Failed to bring service down")
		return
	}
	respond(w, http.StatusOK, "Service successfully brought down")
}

// MakeOutageEndpointHandler creates an HTTP handler for the control endpoint.
// Sending an authenticated POST request with either "up" or "down" in the body
// brings the simulated service up or down accordingly.
func MakeOutageEndpointHandler(username, passwordHash string, isUpFn func() bool, setUpFn func(bool) error) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respond(w, http.StatusMethodNotAllowed, "Unsupported method")
			return
		}
		if err := authenticate(r, username, passwordHash); err != nil {
			log.Printf("Failed authentication attempt from: %s", r.RemoteAddr)
			respond(w, http.StatusUnauthorized, fmt.Sprintf("Error: %v", err))
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			respond(w, http.StatusInternalServerError, "Internal server error while reading request body")
			return
		}
		switch string(body) {
		case "up":
			log.Printf("Attempting to bring service UP")
			serviceUp(w, isUpFn, setUpFn)
		case "down":
			log.Printf("Attempting to bring service DOWN")
			serviceDown(w, isUpFn, setUpFn)
		default:
			respond(w, http.StatusBadRequest, "Unrecognised command")
		}
	}
}

func authenticate(req *http.Request, username, passwordHash string) error {
	u, p, ok := req.BasicAuth()
	if !ok {
		return fmt.Errorf("missing username and/or password in request")
	}
	if u != username {
		return fmt.Errorf("invalid username and/or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)); err != nil {
		return fmt.Errorf("invalid username and/or password")
	}
	return nil
}
