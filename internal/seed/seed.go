package seed

import (
	"context"
	"fmt"

	"github.com/inksign/inksign/backend/go-services/internal/document/service"
	"github.com/inksign/inksign/backend/go-services/internal/models"
	"github.com/inksign/inksign/backend/go-services/internal/users"
	"github.com/inksign/inksign/backend/go-services/pkg/logger"
)

const SampleTitle = "Sample Q3 Contract"

// Account is a demo principal.
type Account struct {
	Name  string
	Email string
}

var DemoAccounts = []Account{
	{Name: "Alex", Email: "alex@acme.com"},
	{Name: "Blake", Email: "blake@acme.com"},
}

// Result lists what Demo ensured.
type Result struct {
	Users  []*models.User
	Sample string // id of the sample document, "" when it already existed
}

// Demo registers the demo accounts with password and, unless the first
// account already has documents, sends a sample request from the first
// account to the second. Running it twice changes nothing.
func Demo(ctx context.Context, dir *users.Service, docs *service.Service, password string) (*Result, error) {
	res := &Result{}
	for _, a := range DemoAccounts {
		u, err := dir.EnsureUser(ctx, a.Name, a.Email, password)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", a.Email, err)
		}
		res.Users = append(res.Users, u)
	}
	sender, recipient := res.Users[0], res.Users[1]

	existing, err := docs.List(ctx, sender.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		logger.Infof("seed: %s already has %d documents", sender.Email, len(existing))
		return res, nil
	}
	d, err := docs.Create(ctx, sender.ID, service.CreateInput{
		Title:       SampleTitle,
		RecipientID: recipient.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("seed sample document: %w", err)
	}
	res.Sample = d.ID
	logger.Infof("seed: created %q (%s)", SampleTitle, d.ID)
	return res, nil
}
