package webutil

const (
	// Header Keys
	HeaderContentType = "Content-Type"
	HeaderIngestKey   = "X-INGEST-KEY"

	// Query parameters
	QueryIngestKey = "key"

	// Content Types
	ContentTypeJSONUTF8      = "application/json; charset=utf-8"
	ContentTypeTextPlainUTF8 = "text/plain; charset=utf-8"
	ContentTypeForm          = "application/x-www-form-urlencoded"
	ContentTypeMultipartForm = "multipart/form-data"
)
