// Package credential mints the per-seat tokens a vendor scans at the door.
package credential

import (
	"encoding/base64"
	"eventers-ticketing-backend/model"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// Issuer builds credentials whose QR code points at verifyURL.
type Issuer struct {
	verifyURL string
	level     qrcode.RecoveryLevel
}

func NewIssuer(verifyURL string) *Issuer {
	return &Issuer{verifyURL: verifyURL, level: qrcode.Medium}
}

// Issue mints one unused credential for a seat of eventID.
func (i *Issuer) Issue(eventID string) (model.Credential, error) {
	qrID := uuid.New().String()

	link, err := i.CreateQrLink(i.VerificationURL(qrID, eventID))
	if err != nil {
		return model.Credential{}, fmt.Errorf("issue: %w", err)
	}

	return model.Credential{
		QRID:       qrID,
		QRCodeLink: link,
		Status:     model.TicketUnused,
	}, nil
}

// VerificationURL is the link encoded in the credential's QR code.
func (i *Issuer) VerificationURL(qrID, eventID string) string {
	q := url.Values{}
	q.Set("ticketId", qrID)
	q.Set("eventId", eventID)
	return i.verifyURL + "?" + q.Encode()
}

// CreateQrLink renders target as a PNG QR code data URL.
func (i *Issuer) CreateQrLink(target string) (string, error) {
	png, err := qrcode.Encode(target, i.level, qrSize)
	if err != nil {
		return "", fmt.Errorf("createQrLink: error encoding %q: %w", target, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
