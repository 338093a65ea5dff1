package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DocumentKind identifies one of the supported document templates
type DocumentKind string

const (
	KindBusinessProposal      DocumentKind = "business_proposal"
	KindPitchDeck             DocumentKind = "pitch_deck"
	KindLoanApplication       DocumentKind = "loan_application"
	KindCompanyProfile        DocumentKind = "company_profile"
	KindCashflowProjection    DocumentKind = "cashflow_projection"
	KindPricingRecommendation DocumentKind = "pricing_recommendation"
	KindExecutiveSummary      DocumentKind = "executive_summary"
	KindBrandingKit           DocumentKind = "branding_kit"
)

const (
	maxNameLength = 200
	maxTextLength = 4000
)

var kindLabels = map[DocumentKind]string{
	KindBusinessProposal:      "Business Proposal",
	KindPitchDeck:             "Pitch Deck",
	KindLoanApplication:       "Loan Application",
	KindCompanyProfile:        "Company Profile",
	KindCashflowProjection:    "Cashflow Projection",
	KindPricingRecommendation: "Pricing Recommendation",
	KindExecutiveSummary:      "Executive Summary",
	KindBrandingKit:           "Branding Kit",
}

// AllDocumentKinds returns the kinds in display order
func AllDocumentKinds() []DocumentKind {
	return []DocumentKind{
		KindBusinessProposal,
		KindPitchDeck,
		KindLoanApplication,
		KindCompanyProfile,
		KindCashflowProjection,
		KindPricingRecommendation,
		KindExecutiveSummary,
		KindBrandingKit,
	}
}

// Valid reports whether k is a known kind
func (k DocumentKind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Label returns the human readable name, e.g. "Pitch Deck"
func (k DocumentKind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// IsSlideDeck reports whether the kind is presented as slides
func (k DocumentKind) IsSlideDeck() bool {
	return k == KindPitchDeck || k == KindCompanyProfile
}

// ParseDocumentKind accepts either the identifier ("pitch_deck") or the
// label ("Pitch Deck"), case-insensitively.
func ParseDocumentKind(s string) (DocumentKind, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	k := DocumentKind(norm)
	return k, k.Valid()
}

// Field is one labelled form value embedded into a prompt
type Field struct {
	Label string
	Value string
}

// DocumentInput is the structured form input for one document kind
type DocumentInput interface {
	Kind() DocumentKind
	Business() BusinessInfo
	// Fields lists the kind specific values in prompt order. Empty values
	// are included; the prompt builder drops them.
	Fields() []Field
	Validate() error
}

// BusinessInfo is shared by every document kind
type BusinessInfo struct {
	BusinessName string `json:"business_name" example:"Acme Bakery"`
	Sector       string `json:"sector" example:"Food & Beverage"`
	Location     string `json:"location,omitempty" example:"Lagos, Nigeria"`
	Description  string `json:"description,omitempty" example:"Artisan bakery supplying cafes and households"`
	Currency     string `json:"currency,omitempty" example:"NGN"`
}

func (b BusinessInfo) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.BusinessName, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&b.Sector, validation.Required, validation.Length(1, 100)),
		validation.Field(&b.Location, validation.Length(0, maxNameLength)),
		validation.Field(&b.Description, validation.Length(0, maxTextLength)),
		validation.Field(&b.Currency, validation.Length(3, 3)),
	)
}

func (b BusinessInfo) Business() BusinessInfo { return b }

// businessFields lists the shared business details
func (b BusinessInfo) businessFields() []Field {
	return []Field{
		{"Business Name", b.BusinessName},
		{"Sector", b.Sector},
		{"Location", b.Location},
		{"Business Description", b.Description},
	}
}

func (b BusinessInfo) money(v float64) string {
	if v == 0 {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if b.Currency != "" {
		return b.Currency + " " + s
	}
	return s
}

func text(rules ...validation.Rule) []validation.Rule {
	return append(rules, validation.Length(0, maxTextLength))
}

type BusinessProposalInput struct {
	BusinessInfo
	ClientName   string `json:"client_name" example:"Lagos State Ministry of Commerce"`
	ProjectScope string `json:"project_scope" example:"Daily bread supply for 12 staff canteens"`
	Objectives   string `json:"objectives,omitempty"`
	Budget       string `json:"budget,omitempty" example:"NGN 4,500,000"`
	Timeline     string `json:"timeline,omitempty" example:"6 months"`
}

func (in *BusinessProposalInput) Kind() DocumentKind { return KindBusinessProposal }

func (in *BusinessProposalInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.BusinessInfo),
		validation.Field(&in.ClientName, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&in.ProjectScope, text(validation.Required)...),
		validation.Field(&in.Objectives, text()...),
		validation.Field(&in.Budget, validation.Length(0, 100)),
		validation.Field(&in.Timeline, validation.Length(0, 100)),
	)
}

func (in *BusinessProposalInput) Fields() []Field {
	return append(in.businessFields(),
		Field{"Client", in.ClientName},
		Field{"Project Scope", in.ProjectScope},
		Field{"Objectives", in.Objectives},
		Field{"Budget", in.Budget},
		Field{"Timeline", in.Timeline},
	)
}

type PitchDeckInput struct {
	BusinessInfo
	Problem       string  `json:"problem" example:"Cafes struggle to source consistent fresh bread"`
	Solution      string  `json:"solution" example:"Subscription delivery before 7am"`
	TargetMarket  string  `json:"target_market,omitempty"`
	BusinessModel string  `json:"business_model,omitempty"`
	Traction      string  `json:"traction,omitempty"`
	Competitors   string  `json:"competitors,omitempty"`
	FundingAsk    float64 `json:"funding_ask,omitempty" example:"25000000"`
	UseOfFunds    string  `json:"use_of_funds,omitempty"`
}

func (in *PitchDeckInput) Kind() DocumentKind { return KindPitchDeck }

func (in *PitchDeckInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.BusinessInfo),
		validation.Field(&in.Problem, text(validation.Required)...),
		validation.Field(&in.Solution, text(validation.Required)...),
		validation.Field(&in.TargetMarket, text()...),
		validation.Field(&in.BusinessModel, text()...),
		validation.Field(&in.Traction, text()...),
		validation.Field(&in.Competitors, text()...),
		validation.Field(&in.FundingAsk, validation.Min(0.0)),
		validation.Field(&in.UseOfFunds, text()...),
	)
}

func (in *PitchDeckInput) Fields() []Field {
	return append(in.businessFields(),
		Field{"Problem", in.Problem},
		Field{"Solution", in.Solution},
		Field{"Target Market", in.TargetMarket},
		Field{"Business Model", in.BusinessModel},
		Field{"Traction", in.Traction},
		Field{"Competitors", in.Competitors},
		Field{"Funding Ask", in.money(in.FundingAsk)},
		Field{"Use of Funds", in.UseOfFunds},
	)
}

type LoanApplicationInput struct {
	BusinessInfo
	LoanAmount       float64 `json:"loan_amount" example:"10000000"`
	LoanPurpose      string  `json:"loan_purpose" example:"Second oven and delivery van"`
	RepaymentMonths  int     `json:"repayment_months,omitempty" example:"24"`
	AnnualRevenue    float64 `json:"annual_revenue,omitempty" example:"36000000"`
	YearsInOperation int     `json:"years_in_operation,omitempty" example:"4"`
	Collateral       string  `json:"collateral,omitempty"`
	LenderName       string  `json:"lender_name,omitempty"`
}

func (in *LoanApplicationInput) Kind() DocumentKind { return KindLoanApplication }

func (in *LoanApplicationInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.BusinessInfo),
		validation.Field(&in.LoanAmount, validation.Required, validation.Min(1.0)),
		validation.Field(&in.LoanPurpose, text(validation.Required)...),
		validation.Field(&in.RepaymentMonths, validation.Min(0), validation.Max(360)),
		validation.Field(&in.AnnualRevenue, validation.Min(0.0)),
		validation.Field(&in.YearsInOperation, validation.Min(0), validation.Max(200)),
		validation.Field(&in.Collateral, text()...),
		validation.Field(&in.LenderName, validation.Length(0, maxNameLength)),
	)
}

func (in *LoanApplicationInput) Fields() []Field {
	return append(in.businessFields(),
		Field{"Loan Amount", in.money(in.LoanAmount)},
		Field{"Loan Purpose", in.LoanPurpose},
		Field{"Repayment Period", months(in.RepaymentMonths)},
		Field{"Annual Revenue", in.money(in.AnnualRevenue)},
		Field{"Years in Operation", count(in.YearsInOperation)},
		Field{"Collateral", in.Collateral},
		Field{"Lender", in.LenderName},
	)
}

type CompanyProfileInput struct {
	BusinessInfo
	FoundedYear  int    `json:"founded_year,omitempty" example:"2019"`
	Mission      string `json:"mission,omitempty"`
	Vision       string `json:"vision,omitempty"`
	Products     string `json:"products" example:"Sourdough, agege bread, pastries"`
	Team         string `json:"team,omitempty"`
	Achievements string `json:"achievements,omitempty"`
	Clients      string `json:"clients,omitempty"`
}

func (in *CompanyProfileInput) Kind() DocumentKind { return KindCompanyProfile }

func (in *CompanyProfileInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.BusinessInfo),
		validation.Field(&in.FoundedYear, validation.Min(0), validation.Max(3000)),
		validation.Field(&in.Mission, text()...),
		validation.Field(&in.Vision, text()...),
		validation.Field(&in.Products, text(validation.Required)...),
		validation.Field(&in.Team, text()...),
		validation.Field(&in.Achievements, text()...),
		validation.Field(&in.Clients, text()...),
	)
}

func (in *CompanyProfileInput) Fields() []Field {
	return append(in.businessFields(),
		Field{"Founded", count(in.FoundedYear)},
		Field{"Mission", in.Mission},
		Field{"Vision", in.Vision},
		Field{"Products and Services", in.Products},
		Field{"Team", in.Team},
		Field{"Achievements", in.Achievements},
		Field{"Key Clients", in.Clients},
	)
}

type CashflowProjectionInput struct {
	BusinessInfo
	StartingCash    float64 `json:"starting_cash" example:"2000000"`
	MonthlyRevenue  float64 `json:"monthly_revenue" example:"3000000"`
	MonthlyExpenses float64 `json:"monthly_expenses" example:"2200000"`
	GrowthRate      float64 `json:"growth_rate,omitempty" example:"5"`
	Months          int     `json:"months,omitempty" example:"12"`
	PlannedExpenses string  `json:"planned_expenses,omitempty"`
}

func (in *CashflowProjectionInput) Kind() DocumentKind { return KindCashflowProjection }

func (in *CashflowProjectionInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.BusinessInfo),
		validation.Field(&in.StartingCash, validation.Min(0.0)),
		validation.Field(&in.MonthlyRevenue, validation.Required, validation.Min(0.0)),
		validation.Field(&in.MonthlyExpenses, validation.Required, validation.Min(0.0)),
		validation.Field(&in.GrowthRate, validation.Min(-100.0), validation.Max(1000.0)),
		validation.Field(&in.Months, validation.Min(0), validation.Max(36)),
		validation.Field(&in.PlannedExpenses, text()...),
	)
}

// ProjectionMonths defaults to twelve months
func (in *CashflowProjectionInput) ProjectionMonths() int {
	if in.Months <= 0 {
		return 12
	}
	return in.Months
}

func (in *CashflowProjectionInput) Fields() []Field {
	growth := ""
	if in.GrowthRate != 0 {
		growth = strconv.FormatFloat(in.GrowthRate, 'f', -1, 64) + "% per month"
	}
	return append(in.businessFields(),
		Field{"Starting Cash", in.money(in.StartingCash)},
		Field{"Monthly Revenue", in.money(in.MonthlyRevenue)},
		Field{"Monthly Expenses", in.money(in.MonthlyExpenses)},
		Field{"Expected Growth", growth},
		Field{"Projection Period", months(in.ProjectionMonths())},
		Field{"Planned Expenses", in.PlannedExpenses},
	)
}

type PricingRecommendationInput struct {
	BusinessInfo
	ProductName      string  `json:"product_name" example:"Family sourdough loaf"`
	UnitCost         float64 `json:"unit_cost" example:"850"`
	CurrentPrice     float64 `json:"current_price,omitempty" example:"1200"`
	CompetitorPrices string  `json:"competitor_prices,omitempty"`
	TargetCustomers  string  `json:"target_customers,omitempty"`
	Positioning      string  `json:"positioning,omitempty" example:"premium"`
}

func (in *PricingRecommendationInput) Kind() DocumentKind { return KindPricingRecommendation }

func (in *PricingRecommendationInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.BusinessInfo),
		validation.Field(&in.ProductName, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&in.UnitCost, validation.Required, validation.Min(0.0)),
		validation.Field(&in.CurrentPrice, validation.Min(0.0)),
		validation.Field(&in.CompetitorPrices, text()...),
		validation.Field(&in.TargetCustomers, text()...),
		validation.Field(&in.Positioning, validation.Length(0, 100)),
	)
}

func (in *PricingRecommendationInput) Fields() []Field {
	return append(in.businessFields(),
		Field{"Product", in.ProductName},
		Field{"Unit Cost", in.money(in.UnitCost)},
		Field{"Current Price", in.money(in.CurrentPrice)},
		Field{"Competitor Prices", in.CompetitorPrices},
		Field{"Target Customers", in.TargetCustomers},
		Field{"Positioning", in.Positioning},
	)
}

type ExecutiveSummaryInput struct {
	BusinessInfo
	Purpose          string `json:"purpose" example:"Investor update for Q3"`
	Highlights       string `json:"highlights,omitempty"`
	Goals            string `json:"goals,omitempty"`
	FinancialSummary string `json:"financial_summary,omitempty"`
	Audience         string `json:"audience,omitempty"`
}

func (in *ExecutiveSummaryInput) Kind() DocumentKind { return KindExecutiveSummary }

func (in *ExecutiveSummaryInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.BusinessInfo),
		validation.Field(&in.Purpose, text(validation.Required)...),
		validation.Field(&in.Highlights, text()...),
		validation.Field(&in.Goals, text()...),
		validation.Field(&in.FinancialSummary, text()...),
		validation.Field(&in.Audience, validation.Length(0, maxNameLength)),
	)
}

func (in *ExecutiveSummaryInput) Fields() []Field {
	return append(in.businessFields(),
		Field{"Purpose", in.Purpose},
		Field{"Highlights", in.Highlights},
		Field{"Goals", in.Goals},
		Field{"Financial Summary", in.FinancialSummary},
		Field{"Audience", in.Audience},
	)
}

type BrandingKitInput struct {
	BusinessInfo
	Personality     string `json:"personality" example:"warm, trustworthy, local"`
	TargetAudience  string `json:"target_audience,omitempty"`
	PreferredColors string `json:"preferred_colors,omitempty"`
	Competitors     string `json:"competitors,omitempty"`
	ExistingTagline string `json:"existing_tagline,omitempty"`
}

func (in *BrandingKitInput) Kind() DocumentKind { return KindBrandingKit }

func (in *BrandingKitInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.BusinessInfo),
		validation.Field(&in.Personality, text(validation.Required)...),
		validation.Field(&in.TargetAudience, text()...),
		validation.Field(&in.PreferredColors, validation.Length(0, maxNameLength)),
		validation.Field(&in.Competitors, text()...),
		validation.Field(&in.ExistingTagline, validation.Length(0, maxNameLength)),
	)
}

func (in *BrandingKitInput) Fields() []Field {
	return append(in.businessFields(),
		Field{"Brand Personality", in.Personality},
		Field{"Target Audience", in.TargetAudience},
		Field{"Preferred Colors", in.PreferredColors},
		Field{"Competitors", in.Competitors},
		Field{"Existing Tagline", in.ExistingTagline},
	)
}

var inputFactories = map[DocumentKind]func() DocumentInput{
	KindBusinessProposal:      func() DocumentInput { return &BusinessProposalInput{} },
	KindPitchDeck:             func() DocumentInput { return &PitchDeckInput{} },
	KindLoanApplication:       func() DocumentInput { return &LoanApplicationInput{} },
	KindCompanyProfile:        func() DocumentInput { return &CompanyProfileInput{} },
	KindCashflowProjection:    func() DocumentInput { return &CashflowProjectionInput{} },
	KindPricingRecommendation: func() DocumentInput { return &PricingRecommendationInput{} },
	KindExecutiveSummary:      func() DocumentInput { return &ExecutiveSummaryInput{} },
	KindBrandingKit:           func() DocumentInput { return &BrandingKitInput{} },
}

// DecodeDocumentInput unmarshals raw form input into the struct for kind.
// Unknown JSON fields are rejected so typos surface as validation errors.
func DecodeDocumentInput(kind DocumentKind, raw json.RawMessage) (DocumentInput, error) {
	factory, ok := inputFactories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown document type %q", kind)
	}
	in := factory()
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("input is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return in, nil
}

func months(n int) string {
	if n <= 0 {
		return ""
	}
	if n == 1 {
		return "1 month"
	}
	return strconv.Itoa(n) + " months"
}

func count(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
