package credential

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "gigfinder-ticketing/pkg/app_errors"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultNamespace = "GF-TICKET"
	qrSize           = 256
)

// Issuer builds scan tokens of the form <namespace>:<bookingID>-<eventID>.
// Both IDs are unique database serials, so tokens need no randomness.
type Issuer struct {
	namespace string
}

func NewIssuer(namespace string) *Issuer {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Issuer{namespace: namespace}
}

func (i *Issuer) Issue(bookingID, eventID int) string {
	return fmt.Sprintf("%s:%d-%d", i.namespace, bookingID, eventID)
}

// Parse 只接受 Issue 產生的標準格式
func (i *Issuer) Parse(token string) (bookingID int, eventID int, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(token), i.namespace+":")
	if !ok {
		return 0, 0, apperrors.NewInvalidCredential("unknown token format")
	}

	bookingPart, eventPart, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, 0, apperrors.NewInvalidCredential("unknown token format")
	}

	if bookingID, ok = parseID(bookingPart); !ok {
		return 0, 0, apperrors.NewInvalidCredential("malformed booking id")
	}
	if eventID, ok = parseID(eventPart); !ok {
		return 0, 0, apperrors.NewInvalidCredential("malformed event id")
	}
	return bookingID, eventID, nil
}

// Render encodes the token as a PNG QR code.
func (i *Issuer) Render(token string) ([]byte, error) {
	png, err := qrcode.Encode(token, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render credential: %w", err)
	}
	return png, nil
}

func parseID(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}
