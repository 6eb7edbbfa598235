// Package qrcode renders provisioning URIs as PNG QR codes using
// github.com/skip2/go-qrcode. DataURI returns the image inline so an API response
// can carry it without a second request.
package qrcode
