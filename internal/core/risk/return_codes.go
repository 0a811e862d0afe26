package risk

import "RailSettle/internal/core/domain"

// ReturnCodeInfo describes one ACH return code and the remediation the
// platform takes when it comes back on a transfer.
type ReturnCodeInfo struct {
	Code        string
	Description string
	Action      domain.ReturnAction

	// AddToNegativeList marks codes whose account fingerprints go on
	// the negative list (closed accounts, no-account, unauthorized).
	AddToNegativeList bool
}

// returnCodes is the fixed R01-R33 table. Operators consume it through
// ReturnCodes(); the risk engine consumes it through ProcessReturnCode.
var returnCodes = map[string]ReturnCodeInfo{
	"R01": {Code: "R01", Description: "Insufficient funds", Action: domain.ActionRetry},
	"R02": {Code: "R02", Description: "Account closed", Action: domain.ActionDisableAccount, AddToNegativeList: true},
	"R03": {Code: "R03", Description: "No account / unable to locate account", Action: domain.ActionDisableAccount, AddToNegativeList: true},
	"R04": {Code: "R04", Description: "Invalid account number", Action: domain.ActionDisableAccount, AddToNegativeList: true},
	"R05": {Code: "R05", Description: "Unauthorized debit to consumer account using corporate SEC code", Action: domain.ActionRevokeMandate},
	"R06": {Code: "R06", Description: "Returned per ODFI's request", Action: domain.ActionReview},
	"R07": {Code: "R07", Description: "Authorization revoked by customer", Action: domain.ActionRevokeMandate},
	"R08": {Code: "R08", Description: "Payment stopped", Action: domain.ActionReview},
	"R09": {Code: "R09", Description: "Uncollected funds", Action: domain.ActionRetry},
	"R10": {Code: "R10", Description: "Customer advises not authorized", Action: domain.ActionRevokeMandate},
	"R11": {Code: "R11", Description: "Customer advises entry not in accordance with the terms of authorization", Action: domain.ActionReview},
	"R12": {Code: "R12", Description: "Account sold to another DFI", Action: domain.ActionUpdateRouting},
	"R13": {Code: "R13", Description: "Invalid ACH routing number", Action: domain.ActionUpdateRouting},
	"R14": {Code: "R14", Description: "Representative payee deceased", Action: domain.ActionDisableAccount},
	"R15": {Code: "R15", Description: "Beneficiary or account holder deceased", Action: domain.ActionDisableAccount},
	"R16": {Code: "R16", Description: "Account frozen", Action: domain.ActionDisableAccount},
	"R17": {Code: "R17", Description: "File record edit criteria", Action: domain.ActionReview},
	"R18": {Code: "R18", Description: "Improper effective entry date", Action: domain.ActionReview},
	"R19": {Code: "R19", Description: "Amount field error", Action: domain.ActionReview},
	"R20": {Code: "R20", Description: "Non-transaction account", Action: domain.ActionDisableAccount},
	"R21": {Code: "R21", Description: "Invalid company identification", Action: domain.ActionReview},
	"R22": {Code: "R22", Description: "Invalid individual ID number", Action: domain.ActionReview},
	"R23": {Code: "R23", Description: "Credit entry refused by receiver", Action: domain.ActionReview},
	"R24": {Code: "R24", Description: "Duplicate entry", Action: domain.ActionReview},
	"R25": {Code: "R25", Description: "Addenda error", Action: domain.ActionReview},
	"R26": {Code: "R26", Description: "Mandatory field error", Action: domain.ActionReview},
	"R27": {Code: "R27", Description: "Trace number error", Action: domain.ActionReview},
	"R28": {Code: "R28", Description: "Routing number check digit error", Action: domain.ActionUpdateRouting},
	"R29": {Code: "R29", Description: "Corporate customer advises not authorized", Action: domain.ActionRevokeMandate},
	"R30": {Code: "R30", Description: "RDFI not participant in check truncation program", Action: domain.ActionReview},
	"R31": {Code: "R31", Description: "Permissible return entry (CCD and CTX only)", Action: domain.ActionReview},
	"R32": {Code: "R32", Description: "RDFI non-settlement", Action: domain.ActionRetry},
	"R33": {Code: "R33", Description: "Return of XCK entry", Action: domain.ActionReview},
}

// highRiskReturnCodes weigh extra in return-history scoring:
// unauthorized-activity and bad-account signals.
var highRiskReturnCodes = map[string]bool{
	"R02": true, "R03": true, "R04": true, "R07": true, "R10": true,
}

// ProcessReturnCode resolves a return code to its remediation. Unknown
// codes do not silently default: they come back with known=false and
// the safe review action.
func ProcessReturnCode(code string) (info ReturnCodeInfo, known bool) {
	info, known = returnCodes[code]
	if !known {
		info = ReturnCodeInfo{Code: code, Description: "Unknown return code", Action: domain.ActionReview}
	}
	return info, known
}

// ReturnCodes returns the full table for operator display, keyed by
// code.
func ReturnCodes() map[string]ReturnCodeInfo {
	out := make(map[string]ReturnCodeInfo, len(returnCodes))
	for k, v := range returnCodes {
		out[k] = v
	}
	return out
}
