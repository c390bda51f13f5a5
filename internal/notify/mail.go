package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"shop-service/config"
	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when SMTP credentials or the recipient are missing.
var ErrNotConfigured = errors.New("mail sender is not configured")

const sendTimeout = 15 * time.Second

var summaryTemplate = template.Must(template.New("order").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}).Parse(`<h2>New order #{{.OrderID}}</h2>
<p><b>Customer:</b> {{.Customer.Name}}<br>
<b>Phone:</b> {{.Customer.Phone}}<br>
<b>Email:</b> {{.Customer.Email}}</p>
{{if .Customer.Comment}}<p><b>Comment:</b> {{.Customer.Comment}}</p>{{end}}
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Product</th><th>Quantity</th><th>Price</th><th>Subtotal</th></tr>
{{range .Lines}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{money .UnitPrice}}</td><td>{{money .Subtotal}}</td></tr>
{{end}}</table>
<p><b>Total: {{money .TotalAmount}}</b></p>
`))

// MailSender mails order summaries to the shop operator over SMTPS
type MailSender struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

// NewMailSender creates a new mail sender
func NewMailSender(cfg config.MailConfig) *MailSender {
	return &MailSender{
		cfg:    cfg,
		logger: util.GetLogger(),
	}
}

// Configured reports whether credentials and a recipient are present
func (m *MailSender) Configured() bool {
	return m.cfg.Host != "" && m.cfg.Username != "" && m.cfg.Password != "" && m.cfg.To != ""
}

// NotifyOrderPlaced renders the order summary and sends it to the operator address
func (m *MailSender) NotifyOrderPlaced(ctx context.Context, notification *models.OrderNotification) error {
	ctx, span := util.StartSpan(ctx, "MailSender.NotifyOrderPlaced")
	defer span.End()

	if !m.Configured() {
		return ErrNotConfigured
	}

	msg, err := m.buildMessage(notification)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTimeout(sendTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to send order mail: %w", err)
	}

	m.logger.Info("Order notification mailed",
		zap.Int64("order_id", notification.OrderID),
		zap.String("to", m.cfg.To))
	return nil
}

func (m *MailSender) buildMessage(notification *models.OrderNotification) (*mail.Msg, error) {
	body, err := RenderOrderSummary(notification)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Username); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(m.cfg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(Subject(notification))
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

// Subject is the mail subject line for an order
func Subject(notification *models.OrderNotification) string {
	return fmt.Sprintf("New order #%d for %s", notification.OrderID, notification.TotalAmount.StringFixed(2))
}

// RenderOrderSummary renders the HTML body of an order notification
func RenderOrderSummary(notification *models.OrderNotification) (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, notification); err != nil {
		return "", fmt.Errorf("failed to render order summary: %w", err)
	}
	return buf.String(), nil
}
