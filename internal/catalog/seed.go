package catalog

import id "docket/pkg/domain"

// Seed registers the built-in visa routes. The catalog is mock reference
// data for the prototype; a production deployment would load it from the
// policy service instead.
func Seed(c *Catalog) {
	c.Register(Route{
		ID:   "skilled-worker",
		Name: "Skilled Worker",
		Sections: []SectionDef{
			{
				ID:    id.SectionID("identity"),
				Title: "Identity",
				Requirements: []RequirementDef{
					{
						Title:        "Passport",
						DocumentType: id.DocumentType("passport"),
						Count:        1,
						Fields: []FieldDef{
							{Key: "full_name", Label: "Full name", Required: true, Editable: true},
							{Key: "passport_number", Label: "Passport number", Required: true, Editable: true},
							{Key: "date_of_birth", Label: "Date of birth", Required: true, Editable: true},
							{Key: "expiry_date", Label: "Expiry date", Required: true, Editable: true},
						},
					},
				},
			},
			{
				ID:    id.SectionID("employment"),
				Title: "Employment",
				Requirements: []RequirementDef{
					{
						Title:        "Certificate of Sponsorship",
						DocumentType: id.DocumentType("sponsorship_certificate"),
						Count:        1,
						Fields: []FieldDef{
							{Key: "sponsor_name", Label: "Sponsor name", Required: true, Editable: true},
							{Key: "cos_reference", Label: "CoS reference", Required: true, Editable: true},
							{Key: "job_title", Label: "Job title", Required: true, Editable: true},
							{Key: "annual_salary", Label: "Annual salary", Required: true, Editable: true},
						},
					},
					{
						Title:        "Payslip",
						DocumentType: id.DocumentType("payslip"),
						Count:        3,
						Fields: []FieldDef{
							{Key: "employer_name", Label: "Employer name", Required: true, Editable: true},
							{Key: "pay_period", Label: "Pay period", Required: true, Editable: true},
							{Key: "gross_pay", Label: "Gross pay", Required: true, Editable: true},
						},
					},
				},
			},
			{
				ID:    id.SectionID("finances"),
				Title: "Financial Requirement",
				Requirements: []RequirementDef{
					{
						Title:        "Bank Statement",
						DocumentType: id.DocumentType("bank_statement"),
						Count:        1,
						Fields: []FieldDef{
							{Key: "account_holder", Label: "Account holder", Required: true, Editable: true},
							{Key: "closing_balance", Label: "Closing balance", Required: true, Editable: true},
							{Key: "statement_period", Label: "Statement period", Required: true, Editable: true},
						},
					},
				},
			},
		},
	})

	c.Register(Route{
		ID:   "spouse",
		Name: "Spouse / Partner",
		Sections: []SectionDef{
			{
				ID:    id.SectionID("identity"),
				Title: "Identity",
				Requirements: []RequirementDef{
					{
						Title:        "Passport",
						DocumentType: id.DocumentType("passport"),
						Count:        1,
						Fields: []FieldDef{
							{Key: "full_name", Label: "Full name", Required: true, Editable: true},
							{Key: "passport_number", Label: "Passport number", Required: true, Editable: true},
						},
					},
				},
			},
			{
				ID:    id.SectionID("relationship"),
				Title: "Relationship",
				Requirements: []RequirementDef{
					{
						Title:        "Marriage Certificate",
						DocumentType: id.DocumentType("marriage_certificate"),
						Count:        1,
						Fields: []FieldDef{
							{Key: "spouse_name", Label: "Spouse name", Required: true, Editable: true},
							{Key: "marriage_date", Label: "Marriage date", Required: true, Editable: true},
						},
					},
				},
			},
		},
	})
}
