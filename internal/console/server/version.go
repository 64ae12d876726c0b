package server

import (
	"net/http"

	"github.com/Masterminds/semver/v3"
	"github.com/tansive/vaultconsole/internal/common/httpx"
)

// Version is the console version.
const Version = "0.1.0"

// ApiVersion is the version of the console's HTTP API.
const ApiVersion = "v1"

// ClientVersionHeader carries the front end's version.
const ClientVersionHeader = "X-Vault-Client-Version"

// versionConstraint accepts clients with the same major and minor version.
var versionConstraint *semver.Constraints

func init() {
	var err error
	versionConstraint, err = semver.NewConstraint("~" + Version)
	if err != nil {
		panic(err)
	}
}

// IsVersionCompatible reports whether a client version can talk to this server.
// Invalid version strings are incompatible.
func IsVersionCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return versionConstraint.Check(v)
}

// checkClientVersion rejects clients that announce an incompatible version.
// Clients that send no version are let through.
func checkClientVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.Header.Get(ClientVersionHeader); v != "" && !IsVersionCompatible(v) {
			httpx.ErrInvalidRequest("client version " + v + " is not compatible with console " + Version).Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
