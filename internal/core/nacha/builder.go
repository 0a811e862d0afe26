package nacha

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrEmptyBatch is the codec's only hard failure: there is nothing
// meaningful to encode. Malformed account data must be rejected
// upstream by the validators; the codec does not re-validate.
var ErrEmptyBatch = errors.New("nacha: cannot build a file from an empty transfer batch")

// OriginConfig identifies the ODFI and the originating company. All of
// it comes from deployment configuration.
type OriginConfig struct {
	ImmediateDestination string // 9-digit receiving point routing number
	ImmediateOrigin      string // 9-digit origin routing or company id
	DestinationName      string
	OriginName           string
	CompanyName          string
	CompanyID            string
	ODFIRoutingNumber    string // 9 digits; the first 8 prefix every trace number
	FileIDModifier       byte   // 'A'-'Z', distinguishes same-day files
}

func (c OriginConfig) odfiID() string {
	if len(c.ODFIRoutingNumber) >= 8 {
		return c.ODFIRoutingNumber[:8]
	}
	return c.ODFIRoutingNumber + strings.Repeat("0", 8-len(c.ODFIRoutingNumber))
}

// EntryInput pairs one approved transfer with its account. The raw
// routing and account numbers stay in the vault until the entry line
// is rendered.
type EntryInput struct {
	Transfer *domain.BankTransfer
	Account  *domain.BankAccount
	Prenote  bool
}

// Batch groups entries under one company/SEC code header.
type Batch struct {
	SECCode     string // PPD, CCD, WEB
	Description string // e.g. "PAYMENT", "PAYROLL"
	Effective   time.Time
	Entries     []EntryInput
}

// Trace links a transfer to the trace number it was assigned in the
// file.
type Trace struct {
	TransferID  uuid.UUID
	BatchNumber int
	TraceNumber string
}

// File is the rendered artifact. Content is newline-delimited ASCII,
// every line exactly 94 characters, highly sensitive: it carries
// decrypted account numbers.
type File struct {
	Name    string
	Content string
	Lines   int
	Batches int
	Traces  []Trace

	TotalDebitCents  int64
	TotalCreditCents int64
}

// Builder renders approved transfers into NACHA files. It decrypts
// vaulted account data transiently per entry and never logs or retains
// the plaintext.
type Builder struct {
	cfg   OriginConfig
	vault ports.Vault
	log   zerolog.Logger
}

// NewBuilder creates a file builder.
func NewBuilder(cfg OriginConfig, vault ports.Vault, baseLogger *zerolog.Logger) *Builder {
	return &Builder{
		cfg:   cfg,
		vault: vault,
		log:   baseLogger.With().Str("component", "nacha_builder").Logger(),
	}
}

// BuildFile renders the batches into one file. The file name follows
// ACH_{YYMMDD}_{fileIdChar}.ach.
func (b *Builder) BuildFile(now time.Time, batches []Batch) (*File, error) {
	entryTotal := 0
	for _, batch := range batches {
		entryTotal += len(batch.Entries)
	}
	if entryTotal == 0 {
		return nil, ErrEmptyBatch
	}

	now = now.UTC()
	lines := []string{fileHeader(b.cfg, now)}

	var (
		traces      []Trace
		fileHash    int64
		fileDebits  int64
		fileCredits int64
		fileEntries int
		seq         int
	)

	for i, batch := range batches {
		batchNumber := i + 1
		lines = append(lines, batchHeader(b.cfg, batch.SECCode, batch.Description, batch.Effective, batchNumber))

		var batchHash, batchDebits, batchCredits int64
		for _, in := range batch.Entries {
			seq++
			trace := b.cfg.odfiID() + fmt.Sprintf("%07d", seq)

			line, transit, err := b.renderEntry(in, trace)
			if err != nil {
				return nil, err
			}
			lines = append(lines, line)

			batchHash += transit
			if !in.Prenote {
				if in.Transfer.Direction == domain.DirectionDebit {
					batchDebits += in.Transfer.AmountCents
				} else {
					batchCredits += in.Transfer.AmountCents
				}
			}
			traces = append(traces, Trace{
				TransferID:  in.Transfer.ID,
				BatchNumber: batchNumber,
				TraceNumber: trace,
			})
		}

		batchHash %= 10_000_000_000
		lines = append(lines, batchControl(b.cfg, len(batch.Entries), batchHash, batchDebits, batchCredits, batchNumber))

		fileHash = (fileHash + batchHash) % 10_000_000_000
		fileDebits += batchDebits
		fileCredits += batchCredits
		fileEntries += len(batch.Entries)
	}

	blockCount := (len(lines) + 1 + BlockingFactor - 1) / BlockingFactor
	lines = append(lines, fileControl(len(batches), blockCount, fileEntries, fileHash, fileDebits, fileCredits))

	for len(lines)%BlockingFactor != 0 {
		lines = append(lines, fillerRecord)
	}

	f := &File{
		Name:             fmt.Sprintf("ACH_%s_%c.ach", yymmdd(now), b.cfg.FileIDModifier),
		Content:          strings.Join(lines, "\n") + "\n",
		Lines:            len(lines),
		Batches:          len(batches),
		Traces:           traces,
		TotalDebitCents:  fileDebits,
		TotalCreditCents: fileCredits,
	}

	b.log.Info().
		Str("file", f.Name).
		Int("batches", f.Batches).
		Int("entries", fileEntries).
		Int("lines", f.Lines).
		Msg("NACHA file built")

	return f, nil
}

// GeneratePrenote builds a single-entry file carrying a zero-dollar
// prenotification for the account, forced to SEC code PPD. Prenotes
// validate a destination before real money moves.
func (b *Builder) GeneratePrenote(now time.Time, acct *domain.BankAccount, direction domain.Direction) (*File, error) {
	t := &domain.BankTransfer{
		ID:          uuid.New(),
		AccountID:   acct.ID,
		Direction:   direction,
		AmountCents: 0,
		Currency:    acct.Currency,
		Status:      domain.TransferPending,
	}
	return b.BuildFile(now, []Batch{{
		SECCode:     "PPD",
		Description: "VERIFY",
		Effective:   now,
		Entries:     []EntryInput{{Transfer: t, Account: acct, Prenote: true}},
	}})
}

// renderEntry decrypts the account's vault reference, renders the
// type-6 line, and returns the numeric transit id for hashing. The
// decrypted details go out of scope with this call.
func (b *Builder) renderEntry(in EntryInput, trace string) (line string, transit int64, err error) {
	details, err := ports.OpenVaultRef(b.vault, in.Account.VaultRef)
	if err != nil {
		// Decrypt failures abort the whole build; a file with blank
		// account data must never leave this function.
		return "", 0, fmt.Errorf("nacha: entry for transfer %s: %w", in.Transfer.ID, err)
	}

	if len(details.RoutingNumber) != 9 {
		// Checksum validation happened upstream; length is the one
		// precondition the split below cannot survive without.
		return "", 0, fmt.Errorf("nacha: vaulted routing number for transfer %s is not 9 digits", in.Transfer.ID)
	}
	transitStr, checkDigit := details.RoutingNumber[:8], details.RoutingNumber[8:]
	var transitNum int64
	for i := 0; i < len(transitStr); i++ {
		transitNum = transitNum*10 + int64(transitStr[i]-'0')
	}

	code, err := transactionCode(in.Transfer.Direction, in.Account.AccountType, in.Prenote)
	if err != nil {
		return "", 0, err
	}

	cents := in.Transfer.AmountCents
	if in.Prenote {
		cents = 0
	}

	id := in.Transfer.ID.String()
	line = entryDetail(code, transitStr, checkDigit, details.AccountNumber, cents, id[:8]+id[9:14], in.Account.HolderName, trace)
	return line, transitNum, nil
}

// transactionCode resolves direction x account type (x prenote) to the
// NACHA transaction code.
func transactionCode(direction domain.Direction, accountType domain.AccountType, prenote bool) (string, error) {
	switch {
	case accountType == domain.AccountTypeChecking && direction == domain.DirectionCredit:
		if prenote {
			return txCheckingCreditPrenote, nil
		}
		return txCheckingCredit, nil
	case accountType == domain.AccountTypeChecking && direction == domain.DirectionDebit:
		if prenote {
			return txCheckingDebitPrenote, nil
		}
		return txCheckingDebit, nil
	case accountType == domain.AccountTypeSavings && direction == domain.DirectionCredit:
		if prenote {
			return txSavingsCreditPrenote, nil
		}
		return txSavingsCredit, nil
	case accountType == domain.AccountTypeSavings && direction == domain.DirectionDebit:
		if prenote {
			return txSavingsDebitPrenote, nil
		}
		return txSavingsDebit, nil
	default:
		return "", fmt.Errorf("nacha: no transaction code for %s %s", direction, accountType)
	}
}
