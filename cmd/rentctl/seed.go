package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/service"
)

var (
	firstNames = []string{"Awa", "Moussa", "Fatou", "Ibrahima", "Aminata", "Cheikh", "Khady", "Ousmane", "Mariama", "Mamadou"}
	lastNames  = []string{"Diop", "Ndiaye", "Sow", "Fall", "Ba", "Sy", "Gueye", "Diallo", "Faye", "Cissé"}
	properties = []struct {
		kind domain.PropertyType
		name string
		rent int64
	}{
		{domain.PropertyStudio, "Studio Mermoz", 90000},
		{domain.PropertyRoom, "Chambre Médina", 45000},
		{domain.PropertyApartment, "Appartement Sacré-Coeur", 175000},
		{domain.PropertyApartment, "Appartement Almadies", 350000},
		{domain.PropertyVilla, "Villa Ngor", 600000},
	}
	phonePrefixes = []string{"70", "75", "76", "77", "78"}
)

func SeedCmd() *cobra.Command {
	var count int
	var months int
	var adminID string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo clients with rentals, periods and payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if months < 1 {
				return fmt.Errorf("--months must be at least 1")
			}
			existing, err := st.ListClients(ctx)
			if err != nil {
				return err
			}
			if len(existing) >= count {
				logging.Logger.Infof("Store already has %d clients. Skipping.", len(existing))
				return nil
			}

			now := time.Now()
			clients := service.NewClientService(st)
			ledger := service.NewLedgerService(st)
			rng := rand.New(rand.NewSource(now.UnixNano()))

			logging.Logger.Infof("Generating %d clients...", count-len(existing))
			for i := len(existing); i < count; i++ {
				c, err := clients.Create(ctx, demoClient(rng, now, months, adminID))
				if err != nil {
					return fmt.Errorf("seeding client %d: %w", i, err)
				}
				if err := payHistory(cmd, ledger, rng, c); err != nil {
					return err
				}
			}
			logging.Logger.Infof("Successfully seeded %d clients.", count-len(existing))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 25, "Total number of clients wanted")
	cmd.Flags().IntVar(&months, "months", 6, "How many months of history each rental gets")
	cmd.Flags().StringVar(&adminID, "admin", "", "Owning admin id")
	return cmd
}

func demoClient(rng *rand.Rand, now time.Time, months int, adminID string) domain.Client {
	p := properties[rng.Intn(len(properties))]
	start := time.Date(now.Year(), now.Month(), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC).AddDate(0, -1-rng.Intn(months), 0)
	rent := decimal.NewFromInt(p.rent)
	return domain.Client{
		FirstName: firstNames[rng.Intn(len(firstNames))],
		LastName:  lastNames[rng.Intn(len(lastNames))],
		Phone:     fmt.Sprintf("%s%07d", phonePrefixes[rng.Intn(len(phonePrefixes))], rng.Intn(10_000_000)),
		CNI:       fmt.Sprintf("%013d", rng.Int63n(1e13)),
		AdminID:   adminID,
		Rentals: []domain.Rental{{
			PropertyType: p.kind,
			PropertyName: p.name,
			MonthlyRent:  rent,
			StartDate:    domain.NewTimestamp(start),
			Deposit:      &domain.Deposit{Total: rent.Mul(decimal.NewFromInt(2)), Paid: decimal.Zero},
		}},
	}
}

// payHistory pays most past periods in full, some partially, and leaves the
// rest open so every status shows up.
func payHistory(cmd *cobra.Command, ledger *service.LedgerService, rng *rand.Rand, c *domain.Client) error {
	ctx := cmd.Context()
	for _, r := range c.Rentals {
		if _, _, err := ledger.RecordDeposit(ctx, depositRequest(r, rng)); err != nil {
			return err
		}
		for _, p := range r.Payments {
			var amount decimal.Decimal
			switch roll := rng.Float32(); {
			case roll < 0.7:
				amount = p.Amount
			case roll < 0.85:
				amount = p.Amount.Div(decimal.NewFromInt(2)).Round(0)
			default:
				continue
			}
			if _, _, err := ledger.RecordPayment(ctx, paymentRequest(r.ID, p.ID, amount)); err != nil {
				return err
			}
		}
	}
	return nil
}
