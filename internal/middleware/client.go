package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const cookieName = "lumo_cid"

type ctxKey int

const clientIDKey ctxKey = 0

// ClientID tags every request with a signed client id cookie so event
// channel connections and log lines can be tied to one embedding
// client (webview, console tab, paired phone).
func ClientID(secret []byte) func(http.Handler) http.Handler {
	sc := securecookie.New(secret, nil)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string

			if c, err := r.Cookie(cookieName); err == nil {
				_ = sc.Decode(cookieName, c.Value, &id)
			}
			if id == "" {
				id = uuid.NewString()
				if encoded, err := sc.Encode(cookieName, id); err == nil {
					http.SetCookie(w, &http.Cookie{
						Name:     cookieName,
						Value:    encoded,
						Path:     "/",
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					})
				}
			}

			ctx := context.WithValue(r.Context(), clientIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientID returns the client id for the request, or empty.
func GetClientID(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}
