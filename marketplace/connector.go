package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/finsight"
)

// Connector performs the handshake with a data platform and returns the
// context to inject into analyses.
type Connector interface {
	Connect(ctx context.Context, platformID string) (string, error)
}

// DefaultDelay simulates the OAuth popup and handshake.
const DefaultDelay = 2 * time.Second

// MockConnector answers canned platform data after a delay.
type MockConnector struct {
	Delay time.Duration    // DefaultDelay when zero, negative for none
	Now   func() time.Time // time.Now when nil
}

// Connect implements Connector. Unknown platforms fail with finsight.ErrUnknownIntegration.
func (m *MockConnector) Connect(ctx context.Context, platformID string) (string, error) {
	delay := m.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	synced := now().Format(time.TimeOnly)

	switch platformID {
	case "stripe":
		return fmt.Sprintf(`STRIPE LIVE DATA (Synced %s):
- Monthly Recurring Revenue (MRR): $54,230 (+4.5%% vs last month)
- Net Revenue (YTD): $680,400
- Active Subscribers: 1,240
- Churn Rate: 1.2%%
- Recent Large Transactions: $5,000 (Acme Corp), $3,200 (Stark Ind).
- Disputes: 0.1%% (Healthy)`, synced), nil
	case "xero":
		return fmt.Sprintf(`XERO LEDGER (Synced %s):
- Cash at Bank: $142,500
- Accounts Receivable (Aged > 30 days): $12,400 (High Risk)
- Accounts Payable: $18,200
- Payroll Liability: $45,000
- Unreconciled Items: 3 transactions pending.`, synced), nil
	case "salesforce":
		return fmt.Sprintf(`SALESFORCE PIPELINE (Synced %s):
- Total Weighted Pipeline: $1,450,000
- Opportunities Closing this Month: 5 ($320k value)
- Key Deal at Risk: Wayne Enterprises ($150k) - Stage: Negotiation
- Sales Velocity: 42 days avg cycle
- Win Rate: 28%% (Trending Up)`, synced), nil
	}
	return "", fmt.Errorf("%w %q", finsight.ErrUnknownIntegration, platformID)
}
