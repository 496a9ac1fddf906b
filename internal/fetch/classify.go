package fetch

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

type errorClass int

const (
	errorRetryable errorClass = iota
	errorFatal
)

// classify sorts a transport error into retryable (the connection flaked,
// trying again can work) or fatal (the request itself is broken). Anything
// unrecognized counts as fatal.
func classify(err error) errorClass {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errorRetryable
	}

	var certVerify *tls.CertificateVerificationError
	var recordHeader tls.RecordHeaderError
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certVerify) || errors.As(err, &recordHeader) ||
		errors.As(err, &unknownAuthority) || errors.As(err, &hostname) ||
		errors.As(err, &certInvalid) {
		return errorFatal
	}

	msg := err.Error()
	if strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:") {
		return errorFatal
	}
	if strings.Contains(msg, "redirects") {
		return errorFatal
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errorRetryable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errorRetryable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return errorRetryable
	}

	return errorFatal
}
