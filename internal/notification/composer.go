package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"gigfinder-ticketing/internal/credential"
	"gigfinder-ticketing/internal/model"
)

const QRFilename = "ticket.png"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type emailData struct {
	BookingID    int
	EventName    string
	CustomerName string
	Quantity     int
	StartsAt     string
	Paid         bool
	Amount       string
	Token        string
	QRFilename   string
}

// Composer turns a booking into the emails the buyer receives.
type Composer struct {
	issuer   *credential.Issuer
	currency string
}

func NewComposer(issuer *credential.Issuer, currency string) *Composer {
	return &Composer{issuer: issuer, currency: currency}
}

func (c *Composer) Confirmation(booking *model.Booking, event *model.Event) (Message, error) {
	if booking.Credential == nil {
		return Message{}, fmt.Errorf("booking %d has no credential", booking.ID)
	}
	token := *booking.Credential

	png, err := c.issuer.Render(token)
	if err != nil {
		return Message{}, err
	}

	data := c.baseData(booking, event)
	data.Token = token
	data.QRFilename = QRFilename
	data.Paid = booking.PricePaid > 0
	if event.StartsAt != nil {
		data.StartsAt = event.StartsAt.Format("Mon 2 Jan 2006, 15:04")
	}

	html, err := render("booking_confirmed.html", data)
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      booking.CustomerEmail,
		Subject: fmt.Sprintf("Your tickets for %s", event.Name),
		HTML:    html,
		Attachments: []Attachment{{
			Filename:    QRFilename,
			ContentType: "image/png",
			Data:        png,
			Inline:      true,
		}},
	}, nil
}

func (c *Composer) Refund(booking *model.Booking, event *model.Event) (Message, error) {
	html, err := render("booking_refunded.html", c.baseData(booking, event))
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      booking.CustomerEmail,
		Subject: fmt.Sprintf("Refund for %s", event.Name),
		HTML:    html,
	}, nil
}

func (c *Composer) baseData(booking *model.Booking, event *model.Event) emailData {
	return emailData{
		BookingID:    booking.ID,
		EventName:    event.Name,
		CustomerName: booking.CustomerName,
		Quantity:     booking.Quantity,
		Amount:       FormatAmount(booking.PricePaid, c.currency),
	}
}

func render(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// FormatAmount prints minor units, e.g. 2500 gbp -> £25.00.
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	amount := fmt.Sprintf("%d.%02d", minor/100, minor%100)
	switch strings.ToLower(currency) {
	case "gbp":
		return sign + "£" + amount
	case "eur":
		return sign + "€" + amount
	case "usd":
		return sign + "$" + amount
	}
	return sign + amount + " " + strings.ToUpper(currency)
}
