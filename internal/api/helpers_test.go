package api

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/arborly/paperqueue/internal/cache"
)

func decodeJSON(rec *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(rec.Body).Decode(v)
}

func cacheKeyFor(textBlob string) string {
	return cache.Fingerprint(textBlob)
}
