package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/zeebo/blake3"
)

// AdminSecretHeader carries the admin secret on /admin routes.
const AdminSecretHeader = "X-Admin-Secret"

// adminDigest holds the BLAKE3 digest of the configured secret. Requests are
// compared digest to digest so timing does not depend on the secret length.
var (
	adminDigest [32]byte
	adminSet    bool
)

// SetAdminSecret configures the admin secret; empty disables admin writes.
func SetAdminSecret(secret string) {
	if secret == "" {
		adminDigest, adminSet = [32]byte{}, false
		return
	}
	adminDigest, adminSet = blake3.Sum256([]byte(secret)), true
}

// checkAdmin returns 0 when the request is authorized, otherwise the status
// to reply with.
func checkAdmin(r *http.Request) int {
	if !adminSet {
		adminDeniedTotal.WithLabelValues("unconfigured").Inc()
		return http.StatusForbidden
	}
	got := blake3.Sum256([]byte(r.Header.Get(AdminSecretHeader)))
	if subtle.ConstantTimeCompare(got[:], adminDigest[:]) != 1 {
		adminDeniedTotal.WithLabelValues("mismatch").Inc()
		return http.StatusUnauthorized
	}
	return 0
}
