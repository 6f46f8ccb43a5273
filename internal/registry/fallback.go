package registry

import "github.com/tradefinlabs/docpipeline/constants"

// Fallback returns the minimal hard-coded registry used when no registry file
// is available. It carries enough vocabulary for classification-prompt
// generation; extraction stays disabled except for the two core commercial
// types, whose field sets mirror the shipped registry file.
func Fallback() *Registry {
	reg := &Registry{Documents: []DocumentTypeConfig{
		{
			Type:        "letter_of_credit",
			Category:    constants.CategoryFinancial,
			Description: "Letter of credit issued by a bank, with LC number, applicant, beneficiary",
		},
		{
			Type:        "bill_of_exchange",
			Category:    constants.CategoryFinancial,
			Description: "Pay-to-the-order-of instrument with drawer, drawee, tenor",
		},
		{
			Type:        "commercial_invoice",
			Category:    constants.CategoryCommercial,
			Description: "Invoice from exporter to importer listing goods and total amount",
			Extract:     true,
			Fields: []FieldSpec{
				{Name: "invoice_number", Type: constants.FieldTypeString, Required: true},
				{Name: "invoice_date", Type: constants.FieldTypeDate, Required: true},
				{Name: "seller_name", Type: constants.FieldTypeString, Required: true},
				{Name: "buyer_name", Type: constants.FieldTypeString, Required: true},
				{Name: "currency", Type: constants.FieldTypeString, Required: false},
				{Name: "total_amount", Type: constants.FieldTypeCurrency, Required: true},
				{Name: "description_of_goods", Type: constants.FieldTypeString, Required: false},
				{Name: "lc_reference", Type: constants.FieldTypeString, Required: false},
			},
			ExtractionPrompt: defaultInvoicePrompt,
		},
		{
			Type:        "purchase_order",
			Category:    constants.CategoryCommercial,
			Description: "Buyer order for goods with PO number, items, delivery terms",
		},
		{
			Type:        "bill_of_lading",
			Category:    constants.CategoryTransport,
			Description: "Carrier receipt with B/L number, shipper, consignee, vessel, ports",
			Extract:     true,
			Fields: []FieldSpec{
				{Name: "bill_of_lading_number", Type: constants.FieldTypeString, Required: true},
				{Name: "date_of_issue", Type: constants.FieldTypeDate, Required: true},
				{Name: "shipper_name", Type: constants.FieldTypeString, Required: true},
				{Name: "consignee_name", Type: constants.FieldTypeString, Required: true},
				{Name: "port_of_loading", Type: constants.FieldTypeString, Required: false},
				{Name: "port_of_discharge", Type: constants.FieldTypeString, Required: false},
				{Name: "description_of_goods", Type: constants.FieldTypeString, Required: false},
			},
			ExtractionPrompt: defaultBillOfLadingPrompt,
		},
		{
			Type:        "insurance_policy",
			Category:    constants.CategoryInsurance,
			Description: "Policy with policy number, premium, coverage amount, insured party",
		},
		{
			Type:        "insurance_certificate",
			Category:    constants.CategoryInsurance,
			Description: "Certificate of insurance with certificate number",
		},
		{
			Type:        constants.DocTypeOther,
			Category:    constants.CategoryUnknown,
			Description: "Unrecognized or out-of-scope document",
		},
	}}
	reg.index()
	return reg
}

const defaultInvoicePrompt = `Extract the following fields from this commercial invoice.
Return ONLY valid JSON with exactly these keys, using null for anything not present:
invoice_number, invoice_date (YYYY-MM-DD), seller_name, buyer_name, currency,
total_amount (numeric only, no symbols), description_of_goods, lc_reference.

DOCUMENT TEXT:
{text}`

const defaultBillOfLadingPrompt = `Extract the following fields from this bill of lading.
Return ONLY valid JSON with exactly these keys, using null for anything not present:
bill_of_lading_number, date_of_issue (YYYY-MM-DD), shipper_name, consignee_name,
port_of_loading, port_of_discharge, description_of_goods.

DOCUMENT TEXT:
{text}`
