package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/vaultconsole/internal/common/logtrace"
)

// SendJsonRsp marshals msg and writes it with statusCode.
func SendJsonRsp(r *http.Request, w http.ResponseWriter, statusCode int, msg any) {
	ctx := r.Context()
	msgJson, err := json.Marshal(msg)
	if err != nil {
		log.Ctx(ctx).Err(err).Msg("unable to marshal json")
		ErrApplicationError("Id: " + logtrace.RequestIDFromContext(ctx)).Send(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(msgJson)
}
