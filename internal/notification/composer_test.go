package notification

import (
	"context"
	"testing"
	"time"

	"gigfinder-ticketing/internal/credential"
	"gigfinder-ticketing/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBooking() (*model.Booking, *model.Event) {
	token := "GF-TICKET:42-7"
	startsAt := time.Date(2026, 11, 20, 19, 30, 0, 0, time.UTC)
	booking := &model.Booking{
		ID:            42,
		EventID:       7,
		CustomerName:  "Ada <Lovelace>",
		CustomerEmail: "ada@example.com",
		Quantity:      2,
		Status:        model.BookingStatusConfirmed,
		PricePaid:     2500,
		Credential:    &token,
	}
	event := &model.Event{ID: 7, Name: "Basement Show", StartsAt: &startsAt}
	return booking, event
}

func TestComposer_Confirmation(t *testing.T) {
	composer := NewComposer(credential.NewIssuer(credential.DefaultNamespace), "gbp")
	booking, event := testBooking()

	msg, err := composer.Confirmation(booking, event)

	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Your tickets for Basement Show", msg.Subject)
	assert.Contains(t, msg.HTML, `src="cid:ticket.png"`)
	assert.Contains(t, msg.HTML, "GF-TICKET:42-7")
	assert.Contains(t, msg.HTML, "£25.00")
	assert.Contains(t, msg.HTML, "2 tickets")
	assert.Contains(t, msg.HTML, "Ada &lt;Lovelace&gt;")
	assert.Contains(t, msg.HTML, "Fri 20 Nov 2026, 19:30")

	require.Len(t, msg.Attachments, 1)
	assert.True(t, msg.Attachments[0].Inline)
	assert.Equal(t, QRFilename, msg.Attachments[0].Filename)
	assert.NotEmpty(t, msg.Attachments[0].Data)
}

func TestComposer_Confirmation_RequiresCredential(t *testing.T) {
	composer := NewComposer(credential.NewIssuer(credential.DefaultNamespace), "gbp")
	booking, event := testBooking()
	booking.Credential = nil

	_, err := composer.Confirmation(booking, event)
	assert.Error(t, err)
}

func TestComposer_Refund(t *testing.T) {
	composer := NewComposer(credential.NewIssuer(credential.DefaultNamespace), "gbp")
	booking, event := testBooking()

	msg, err := composer.Refund(booking, event)

	require.NoError(t, err)
	assert.Equal(t, "Refund for Basement Show", msg.Subject)
	assert.Contains(t, msg.HTML, "£25.00 has been refunded")
	assert.Empty(t, msg.Attachments)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "£25.00", FormatAmount(2500, "gbp"))
	assert.Equal(t, "£0.05", FormatAmount(5, "GBP"))
	assert.Equal(t, "€12.34", FormatAmount(1234, "eur"))
	assert.Equal(t, "10.00 SEK", FormatAmount(1000, "sek"))
}

func TestSMTPSender_Build(t *testing.T) {
	sender := NewSMTPSender(smtpTestConfig())
	booking, event := testBooking()
	msg, err := NewComposer(credential.NewIssuer(credential.DefaultNamespace), "gbp").Confirmation(booking, event)
	require.NoError(t, err)

	m, err := sender.build(msg)

	require.NoError(t, err)
	assert.Len(t, m.GetEmbeds(), 1)
	assert.Equal(t, []string{"Your tickets for Basement Show"}, m.GetGenHeader("Subject"))
}

func TestSMTPSender_Build_InvalidRecipient(t *testing.T) {
	sender := NewSMTPSender(smtpTestConfig())
	_, err := sender.build(Message{To: "not an address", Subject: "x", HTML: "<p>x</p>"})
	assert.Error(t, err)
}

func TestLogSender_Send(t *testing.T) {
	booking, event := testBooking()
	msg, err := NewComposer(credential.NewIssuer(credential.DefaultNamespace), "gbp").Refund(booking, event)
	require.NoError(t, err)
	assert.NoError(t, NewLogSender().Send(context.Background(), msg))
}
