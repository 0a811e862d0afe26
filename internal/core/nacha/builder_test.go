package nacha

import (
	"errors"
	"strings"
	"testing"
	"time"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type passthroughVault struct{}

func (passthroughVault) Encrypt(plaintext []byte) ([]byte, error)  { return plaintext, nil }
func (passthroughVault) Decrypt(ciphertext []byte) ([]byte, error) { return ciphertext, nil }

var buildTime = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func testConfig() OriginConfig {
	return OriginConfig{
		ImmediateDestination: "021000021",
		ImmediateOrigin:      "123456780",
		DestinationName:      "First Platform Bank",
		OriginName:           "RailSettle Inc",
		CompanyName:          "RailSettle",
		CompanyID:            "1234567890",
		ODFIRoutingNumber:    "123456780",
		FileIDModifier:       'A',
	}
}

func testEntry(t *testing.T, direction domain.Direction, accountType domain.AccountType, cents int64) EntryInput {
	t.Helper()
	ref, err := ports.SealBankDetails(passthroughVault{}, ports.DecryptedBankDetails{
		RoutingNumber: "021000021",
		AccountNumber: "9876543210",
	})
	if err != nil {
		t.Fatalf("SealBankDetails: %v", err)
	}
	return EntryInput{
		Transfer: &domain.BankTransfer{
			ID:          uuid.New(),
			Direction:   direction,
			AmountCents: cents,
			Currency:    "USD",
			Status:      domain.TransferProcessing,
		},
		Account: &domain.BankAccount{
			ID:          uuid.New(),
			HolderName:  "Grace Hopper",
			AccountType: accountType,
			Country:     "US",
			Currency:    "USD",
			VaultRef:    ref,
		},
	}
}

func newTestBuilder() *Builder {
	nop := zerolog.Nop()
	return NewBuilder(testConfig(), passthroughVault{}, &nop)
}

func buildSingleBatch(t *testing.T, entries ...EntryInput) *File {
	t.Helper()
	b := newTestBuilder()
	f, err := b.BuildFile(buildTime, []Batch{{
		SECCode:     "PPD",
		Description: "PAYMENT",
		Effective:   buildTime.AddDate(0, 0, 1),
		Entries:     entries,
	}})
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}
	return f
}

func TestBuildFile_EmptyBatchIsFatal(t *testing.T) {
	b := newTestBuilder()
	if _, err := b.BuildFile(buildTime, []Batch{{SECCode: "PPD"}}); err != ErrEmptyBatch {
		t.Fatalf("err = %v, want ErrEmptyBatch", err)
	}
	if _, err := b.BuildFile(buildTime, nil); err != ErrEmptyBatch {
		t.Fatalf("err = %v, want ErrEmptyBatch", err)
	}
}

func TestBuildFile_BlockingAndRecordSize(t *testing.T) {
	// Vary entry counts so padding kicks in at different offsets.
	for _, n := range []int{1, 2, 7, 10, 23} {
		entries := make([]EntryInput, n)
		for i := range entries {
			entries[i] = testEntry(t, domain.DirectionCredit, domain.AccountTypeChecking, int64(100*(i+1)))
		}
		f := buildSingleBatch(t, entries...)

		lines := strings.Split(strings.TrimRight(f.Content, "\n"), "\n")
		if len(lines)%10 != 0 {
			t.Errorf("n=%d: %d lines, want a multiple of 10", n, len(lines))
		}
		for i, line := range lines {
			if len(line) != RecordSize {
				t.Errorf("n=%d: line %d has %d chars, want 94", n, i, len(line))
			}
		}
	}
}

func TestBuildFile_RecordLayout(t *testing.T) {
	f := buildSingleBatch(t,
		testEntry(t, domain.DirectionDebit, domain.AccountTypeChecking, 12345),
		testEntry(t, domain.DirectionCredit, domain.AccountTypeSavings, 67890),
	)

	lines := strings.Split(strings.TrimRight(f.Content, "\n"), "\n")

	header := lines[0]
	if header[0] != '1' {
		t.Errorf("file header type = %c", header[0])
	}
	if got := header[23:29]; got != "250615" {
		t.Errorf("creation date = %q, want 250615", got)
	}
	if got := header[33:34]; got != "A" {
		t.Errorf("file id modifier = %q, want A", got)
	}
	if got := header[34:37]; got != "094" {
		t.Errorf("record size field = %q, want 094", got)
	}

	bh := lines[1]
	if bh[0] != '5' {
		t.Errorf("batch header type = %c", bh[0])
	}
	if got := bh[1:4]; got != "200" {
		t.Errorf("service class = %q, want 200", got)
	}
	if got := bh[50:53]; got != "PPD" {
		t.Errorf("SEC code = %q, want PPD", got)
	}

	debit := lines[2]
	if debit[0] != '6' {
		t.Errorf("entry type = %c", debit[0])
	}
	if got := debit[1:3]; got != "27" {
		t.Errorf("checking debit tx code = %q, want 27", got)
	}
	if got := debit[3:11]; got != "02100002" {
		t.Errorf("transit = %q, want 02100002", got)
	}
	if got := debit[11:12]; got != "1" {
		t.Errorf("check digit = %q, want 1", got)
	}
	if got := debit[29:39]; got != "0000012345" {
		t.Errorf("amount = %q, want 0000012345", got)
	}
	if got := debit[79:94]; got != "123456780000001" {
		t.Errorf("trace = %q, want 123456780000001", got)
	}

	credit := lines[3]
	if got := credit[1:3]; got != "32" {
		t.Errorf("savings credit tx code = %q, want 32", got)
	}
	if got := credit[79:94]; got != "123456780000002" {
		t.Errorf("trace = %q, want 123456780000002", got)
	}

	bc := lines[4]
	if bc[0] != '8' {
		t.Errorf("batch control type = %c", bc[0])
	}
	if got := bc[4:10]; got != "000002" {
		t.Errorf("entry count = %q, want 000002", got)
	}
	// Entry hash: two entries on the same transit, 2 x 2100002.
	if got := bc[10:20]; got != "0004200004" {
		t.Errorf("entry hash = %q, want 0004200004", got)
	}
	if got := bc[20:32]; got != "000000012345" {
		t.Errorf("total debits = %q, want 000000012345", got)
	}
	if got := bc[32:44]; got != "000000067890" {
		t.Errorf("total credits = %q, want 000000067890", got)
	}

	fc := lines[5]
	if fc[0] != '9' {
		t.Errorf("file control type = %c", fc[0])
	}
	if got := fc[1:7]; got != "000001" {
		t.Errorf("batch count = %q, want 000001", got)
	}
	// 5 lines before the control record; (5+1+9)/10 = 1 block.
	if got := fc[7:13]; got != "000001" {
		t.Errorf("block count = %q, want 000001", got)
	}
	if got := fc[13:21]; got != "00000002" {
		t.Errorf("file entry count = %q, want 00000002", got)
	}

	for _, line := range lines[6:] {
		if line != strings.Repeat("9", 94) {
			t.Errorf("filler line is not all nines: %q", line)
		}
	}
}

func TestBuildFile_Totals(t *testing.T) {
	f := buildSingleBatch(t,
		testEntry(t, domain.DirectionDebit, domain.AccountTypeChecking, 1000),
		testEntry(t, domain.DirectionDebit, domain.AccountTypeChecking, 2500),
		testEntry(t, domain.DirectionCredit, domain.AccountTypeChecking, 400),
	)
	if f.TotalDebitCents != 3500 {
		t.Errorf("TotalDebitCents = %d, want 3500", f.TotalDebitCents)
	}
	if f.TotalCreditCents != 400 {
		t.Errorf("TotalCreditCents = %d, want 400", f.TotalCreditCents)
	}
	if len(f.Traces) != 3 {
		t.Errorf("traces = %d, want 3", len(f.Traces))
	}
}

func TestBuildFile_FileName(t *testing.T) {
	f := buildSingleBatch(t, testEntry(t, domain.DirectionCredit, domain.AccountTypeChecking, 100))
	if f.Name != "ACH_250615_A.ach" {
		t.Errorf("Name = %q, want ACH_250615_A.ach", f.Name)
	}
}

func TestBuildFile_DecryptFailureAborts(t *testing.T) {
	nop := zerolog.Nop()
	b := NewBuilder(testConfig(), failingVault{}, &nop)

	entry := testEntry(t, domain.DirectionCredit, domain.AccountTypeChecking, 100)
	_, err := b.BuildFile(buildTime, []Batch{{SECCode: "PPD", Effective: buildTime, Entries: []EntryInput{entry}}})
	if err == nil {
		t.Fatal("expected a fatal error on vault decrypt failure")
	}
}

type failingVault struct{}

func (failingVault) Encrypt(plaintext []byte) ([]byte, error) { return plaintext, nil }
func (failingVault) Decrypt(ciphertext []byte) ([]byte, error) {
	return nil, errors.New("could not decrypt")
}

func TestGeneratePrenote(t *testing.T) {
	b := newTestBuilder()
	entry := testEntry(t, domain.DirectionCredit, domain.AccountTypeSavings, 0)

	f, err := b.GeneratePrenote(buildTime, entry.Account, domain.DirectionCredit)
	if err != nil {
		t.Fatalf("GeneratePrenote: %v", err)
	}

	lines := strings.Split(strings.TrimRight(f.Content, "\n"), "\n")
	bh := lines[1]
	if got := bh[50:53]; got != "PPD" {
		t.Errorf("prenote SEC code = %q, want PPD", got)
	}
	detail := lines[2]
	if got := detail[1:3]; got != "33" {
		t.Errorf("savings credit prenote tx code = %q, want 33", got)
	}
	if got := detail[29:39]; got != "0000000000" {
		t.Errorf("prenote amount = %q, want all zeros", got)
	}
	if f.TotalDebitCents != 0 || f.TotalCreditCents != 0 {
		t.Error("prenote must not contribute to money totals")
	}
}

func TestTransactionCodeTable(t *testing.T) {
	testCases := []struct {
		direction domain.Direction
		accType   domain.AccountType
		prenote   bool
		want      string
	}{
		{domain.DirectionCredit, domain.AccountTypeChecking, false, "22"},
		{domain.DirectionCredit, domain.AccountTypeChecking, true, "23"},
		{domain.DirectionDebit, domain.AccountTypeChecking, false, "27"},
		{domain.DirectionDebit, domain.AccountTypeChecking, true, "28"},
		{domain.DirectionCredit, domain.AccountTypeSavings, false, "32"},
		{domain.DirectionCredit, domain.AccountTypeSavings, true, "33"},
		{domain.DirectionDebit, domain.AccountTypeSavings, false, "37"},
		{domain.DirectionDebit, domain.AccountTypeSavings, true, "38"},
	}
	for _, tc := range testCases {
		got, err := transactionCode(tc.direction, tc.accType, tc.prenote)
		if err != nil {
			t.Fatalf("transactionCode(%s, %s, %v): %v", tc.direction, tc.accType, tc.prenote, err)
		}
		if got != tc.want {
			t.Errorf("transactionCode(%s, %s, %v) = %s, want %s", tc.direction, tc.accType, tc.prenote, got, tc.want)
		}
	}

	if _, err := transactionCode(domain.DirectionBoth, domain.AccountTypeChecking, false); err == nil {
		t.Error("bidirectional has no transaction code and must error")
	}
}
