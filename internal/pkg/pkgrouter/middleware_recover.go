package pkgrouter

import (
	"net/http"

	"github.com/shandysiswandi/goservice/internal/pkg/pkgerror"
)

// middlewareRecoverer turns a panic that escaped the inner handlers into a
// 500 response. The panic has already been logged by the request logging
// middleware, so nothing is logged here.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				//nolint:err113,errorlint // this must compare directly
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				if r.Header.Get("Connection") == "Upgrade" {
					return
				}

				errorCodec(r.Context(), w, pkgerror.NewServer(nil))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
