package util

const (
	HttpMimeJson = "application/json"
	HttpMimeForm = "application/x-www-form-urlencoded"

	HttpHeaderContentType        = "Content-Type"
	HttpHeaderContentDisposition = "Content-Disposition"
	HttpHeaderAuthorization      = "Authorization"
	HttpHeaderConnection         = "Connection"
	HttpHeaderUserAgent          = "User-Agent"
)
