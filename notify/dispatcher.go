// Package notify fans report alerts out to SMS recipients and keeps the
// reporting parent informed by e-mail.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/models"
	templates "github.com/safekid-nepal/safekid-api/templates/html"
)

// sendTimeout bounds each SMS or e-mail. Sends are detached from the caller's
// context so a finished or dropped request does not abort the fan-out.
const sendTimeout = 15 * time.Second

// Result summarises one broadcast
type Result struct {
	Success   bool     `json:"success"`
	SentCount int      `json:"sentCount"`
	Failed    []string `json:"failed,omitempty"`
}

// Dispatcher sends alerts to a fixed recipient list. Recipients are not
// filtered by broadcast area; every alert goes to the whole list.
type Dispatcher struct {
	sms        SMSSender
	mailer     Mailer
	recipients []string
	log        *zap.SugaredLogger
}

// NewDispatcher returns a Dispatcher. mailer may be nil to disable e-mail.
func NewDispatcher(sms SMSSender, mailer Mailer, recipients []string, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		sms:        sms,
		mailer:     mailer,
		recipients: recipients,
		log:        log,
	}
}

// Broadcast texts the alert for report to every recipient in turn. A failed
// send is logged and counted and the loop carries on. There is no retry.
func (d *Dispatcher) Broadcast(ctx context.Context, report models.MissingChildReport, area models.BroadcastArea) Result {
	message := templates.AlertMessage(report)
	d.log.Infow("broadcasting alert", "report_id", report.ID.Hex(), "area", area, "recipients", len(d.recipients))

	res := Result{}
	base := context.WithoutCancel(ctx)
	for _, phone := range d.recipients {
		if err := d.send(base, phone, message); err != nil {
			d.log.Errorw("failed to send sms alert", "to", phone, "report_id", report.ID.Hex(), "error", err)
			res.Failed = append(res.Failed, phone)
			continue
		}
		res.SentCount++
	}
	res.Success = res.SentCount > 0
	return res
}

func (d *Dispatcher) send(base context.Context, phone, message string) error {
	ctx, cancel := context.WithTimeout(base, sendTimeout)
	defer cancel()
	return d.sms.Send(ctx, phone, message)
}

// ReportPosted e-mails the parent a confirmation when an address is on file
func (d *Dispatcher) ReportPosted(ctx context.Context, report models.MissingChildReport, sent int) {
	subject, body := templates.ReportPostedEmail(report, sent)
	d.email(ctx, report, subject, body)
}

// ReportFound e-mails the parent that the report was marked found
func (d *Dispatcher) ReportFound(ctx context.Context, report models.MissingChildReport) {
	subject, body := templates.ChildFoundEmail(report)
	d.email(ctx, report, subject, body)
}

func (d *Dispatcher) email(ctx context.Context, report models.MissingChildReport, subject, body string) {
	if d.mailer == nil || report.ParentEmail == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()
	if err := d.mailer.Send(ctx, report.ParentName, report.ParentEmail, subject, body, subject); err != nil {
		d.log.Errorw("failed to email parent", "report_id", report.ID.Hex(), "error", err)
	}
}
