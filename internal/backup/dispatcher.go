// Package backup emails CSV snapshots of all leads through an HTTP email
// provider, off the request path.
package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadbox/leadbox/internal/export"
	"github.com/leadbox/leadbox/internal/model"
)

// Fixed message contents.
const (
	Subject            = "Leads Backup"
	Body               = "Attached is the latest backup of all leads."
	AttachmentName     = "leads_backup.csv"
	AttachmentMIMEType = "text/csv"
)

// Outcome describes what a dispatch did.
type Outcome int

const (
	// OutcomeSent means the provider accepted the message.
	OutcomeSent Outcome = iota
	// OutcomeSkipped means there were no leads, so nothing was sent.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Dispatcher turns a set of leads into a backup email.
type Dispatcher struct {
	mailer Mailer
	from   string
	to     string
}

// NewDispatcher creates a dispatcher sending from one address to another.
func NewDispatcher(mailer Mailer, from, to string) *Dispatcher {
	return &Dispatcher{mailer: mailer, from: from, to: to}
}

// Dispatch sends leads as a CSV attachment. With no leads it returns
// OutcomeSkipped without contacting the provider.
func (d *Dispatcher) Dispatch(ctx context.Context, leads []model.Lead) (Outcome, error) {
	data, err := export.CSV(leads)
	if errors.Is(err, export.ErrNoData) {
		return OutcomeSkipped, nil
	}
	if err != nil {
		return 0, fmt.Errorf("export leads: %w", err)
	}

	msg := Message{
		From:    d.from,
		To:      d.to,
		Subject: Subject,
		Body:    Body,
		Attachments: []Attachment{{
			Filename: AttachmentName,
			Type:     AttachmentMIMEType,
			Content:  data,
		}},
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		return 0, err
	}
	return OutcomeSent, nil
}
