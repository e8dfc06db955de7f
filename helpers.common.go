package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
)

type (
	ContextKey        string
	missingFieldError string
)

const (
	BookIDPrefix            string     = "b"
	UserIDPrefix            string     = "u"
	RequestIDPrefix         string     = "r"
	ContextRequestID        ContextKey = "request.id"
	ContextRequestNumber    ContextKey = "request.number"
	ContextUserID           ContextKey = "request.user.id"
	bestRatingPathSegment   string     = "bestrating"
	coverURLPathPrefix      string     = "/images/"
	multipartFormFieldBook  string     = "book"
	multipartFormFieldImage string     = "image"
)

var (
	ErrBookNotFound         = errors.New("book not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrBadCredentials       = errors.New("invalid credentials")
	ErrNotOwner             = errors.New("caller does not own this book")
	ErrAlreadyRated         = errors.New("book already rated by this user")
	ErrRatingMismatch       = errors.New("rating on behalf of another user")
	ErrInvalidGrade         = errors.New("grade out of range")
	ErrUnsupportedImageType = errors.New("unsupported image type")
)

// Accepted cover upload content types. Whatever the source format,
// covers are always re-encoded to JPEG before being stored.
var allowedCoverMIMETypes = map[string]struct{}{
	"image/jpg":  {},
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val := ctx.Value(contextKey); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// DecodeBookPayload reads the JSON-encoded book value of a creation
// request. Server-assigned fields present in the input are dropped by
// virtue of the BookPayload shape.
func DecodeBookPayload(raw string, payload *BookPayload) error {
	if raw == "" {
		return errors.New("missing book form field")
	}
	return json.Unmarshal([]byte(raw), payload)
}

// ValidateBookPayload checks the content of a book creation request.
func ValidateBookPayload(payload *BookPayload) error {
	if len(payload.Title) == 0 {
		return missingFieldError("title")
	}
	if len(payload.Author) == 0 {
		return missingFieldError("author")
	}
	if len(payload.Genre) == 0 {
		return missingFieldError("genre")
	}
	return nil
}

// ReadCoverUpload extracts the optional cover file from a multipart
// request. It returns nil bytes when no file was attached and
// ErrUnsupportedImageType when the declared content type is not an
// accepted image format.
func ReadCoverUpload(r *http.Request, maxSize int64) ([]byte, error) {
	file, header, err := r.FormFile(multipartFormFieldImage)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, ok := allowedCoverMIMETypes[header.Header.Get("Content-Type")]; !ok {
		return nil, ErrUnsupportedImageType
	}
	return io.ReadAll(io.LimitReader(file, maxSize))
}

// RequestBaseURL rebuilds the scheme and host the client used, so that
// stored cover URLs are addressable from outside. A forwarding proxy
// wins over the local connection state.
func RequestBaseURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + r.Host
}

// CoverFilenameFromURL extracts the stored blob name out of a public
// cover URL. It returns an empty string when the book has no cover.
func CoverFilenameFromURL(imageURL string) string {
	if imageURL == "" {
		return ""
	}
	if i := strings.LastIndex(imageURL, "/"); i >= 0 {
		return imageURL[i+1:]
	}
	return imageURL
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	ip := r.Header.Get("X-REAL-IP")
	if netIP := net.ParseIP(ip); netIP != nil {
		return ip
	}

	ips := r.Header.Get("X-FORWARDED-FOR")
	for _, candidate := range strings.Split(ips, ",") {
		if netIP := net.ParseIP(candidate); netIP != nil {
			return candidate
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	if netIP := net.ParseIP(ip); netIP != nil {
		return ip
	}
	return ""
}
