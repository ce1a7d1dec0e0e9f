// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

// DefaultDefinitions returns a fresh copy of the built-in pattern table.
func DefaultDefinitions() []Definition {
	return []Definition{
		// Case law citations
		{
			Name:         "us_reporter_citation",
			Expression:   `\b\d{1,4}\s+U\.S\.\s+\d{1,4}\b`,
			Category:     CategoryCitation,
			Confidence:   0.95,
			Jurisdiction: "US",
		},
		{
			Name:         "federal_reporter_citation",
			Expression:   `\b\d{1,4}\s+F\.(?:\s?(?:2d|3d|4th))?\s+\d{1,4}\b`,
			Category:     CategoryCitation,
			Confidence:   0.9,
			Jurisdiction: "US",
		},
		{
			Name:         "supreme_court_reporter_citation",
			Expression:   `\b\d{1,4}\s+S\.\s?Ct\.\s+\d{1,5}\b`,
			Category:     CategoryCitation,
			Confidence:   0.9,
			Jurisdiction: "US",
		},
		{
			Name:       "case_name",
			Expression: `\b[A-Z][A-Za-z.&']+(?:\s+[A-Z][A-Za-z.&']+)*\s+v\.\s+[A-Z][A-Za-z.&']+(?:\s+[A-Z][A-Za-z.&']+)*`,
			Category:   CategoryCitation,
			Confidence: 0.8,
		},

		// Statutes and regulations
		{
			Name:         "usc_section",
			Expression:   `\b\d{1,2}\s+U\.S\.C\.\s+§{1,2}\s*\d+[a-z]?(?:\(\w+\))*`,
			Category:     CategoryStatute,
			Confidence:   0.95,
			Jurisdiction: "US",
		},
		{
			Name:         "cfr_section",
			Expression:   `\b\d{1,2}\s+C\.F\.R\.\s+(?:§\s*)?\d+(?:\.\d+)?`,
			Category:     CategoryStatute,
			Confidence:   0.9,
			Jurisdiction: "US",
		},
		{
			Name:       "section_symbol",
			Expression: `§{1,2}\s*\d+(?:\.\d+)*(?:\([a-z0-9]+\))*`,
			Category:   CategoryStatute,
			Confidence: 0.7,
		},
		{
			Name:         "eu_regulation",
			Expression:   `\bRegulation\s+\((?:EU|EC)\)\s+(?:No\.?\s+)?\d{2,4}/\d{2,4}\b`,
			Category:     CategoryStatute,
			Confidence:   0.9,
			Jurisdiction: "EU",
		},

		// Courts
		{
			Name:         "supreme_court",
			Expression:   `\bSupreme Court(?: of (?:the United States|[A-Z][a-z]+(?:\s[A-Z][a-z]+)?))?\b`,
			Category:     CategoryCourt,
			Confidence:   0.9,
			Jurisdiction: "US",
		},
		{
			Name:         "circuit_court",
			Expression:   `\b(?:United States )?Court of Appeals for the (?:First|Second|Third|Fourth|Fifth|Sixth|Seventh|Eighth|Ninth|Tenth|Eleventh|D\.C\.|Federal) Circuit\b`,
			Category:     CategoryCourt,
			Confidence:   0.9,
			Jurisdiction: "US",
		},
		{
			Name:         "district_court",
			Expression:   `\b(?:United States )?District Court for the (?:(?:Northern|Southern|Eastern|Western|Central|Middle) District of )?[A-Z][a-z]+(?:\s[A-Z][a-z]+)?\b`,
			Category:     CategoryCourt,
			Confidence:   0.85,
			Jurisdiction: "US",
		},

		// Parties and organisations
		{
			Name:       "corporation",
			Expression: `\b[A-Z][A-Za-z0-9&]*(?:\s+[A-Z][A-Za-z0-9&]*)*,?\s+(?:Inc\.|Corp\.|Corporation|LLC|L\.L\.C\.|Ltd\.|Limited|LLP|GmbH|S\.A\.)`,
			Category:   CategoryEntity,
			Confidence: 0.85,
		},
		{
			Name:       "party_role",
			Expression: `\b(?:Plaintiff|Defendant|Appellant|Appellee|Petitioner|Respondent|Licensor|Licensee|Lessor|Lessee|Buyer|Seller)s?\b`,
			Category:   CategoryEntity,
			Confidence: 0.6,
		},

		// Dates
		{
			Name:       "long_date",
			Expression: `\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b`,
			Category:   CategoryDate,
			Confidence: 0.9,
		},
		{
			Name:       "numeric_date",
			Expression: `\b\d{1,2}/\d{1,2}/\d{2,4}\b`,
			Category:   CategoryDate,
			Confidence: 0.75,
		},
		{
			Name:       "iso_date",
			Expression: `\b\d{4}-\d{2}-\d{2}\b`,
			Category:   CategoryDate,
			Confidence: 0.8,
		},

		// Monetary amounts
		{
			Name:       "dollar_amount",
			Expression: `\$\s?\d{1,3}(?:,\d{3})*(?:\.\d{2})?(?:\s?(?:million|billion))?`,
			Category:   CategoryMonetary,
			Confidence: 0.9,
		},
		{
			Name:       "currency_code_amount",
			Expression: `\b(?:USD|EUR|GBP)\s?\d{1,3}(?:,\d{3})*(?:\.\d{2})?\b`,
			Category:   CategoryMonetary,
			Confidence: 0.85,
		},
	}
}
