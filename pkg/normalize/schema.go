package normalize

import (
	"sort"

	"stocketl/pkg/provider"
)

// FieldType is the declared target type of a provider field.
type FieldType int

const (
	// Number yields int64 for integral text and float64 otherwise.
	Number FieldType = iota
	// Float always yields float64.
	Float
	// Date yields a UTC midnight time.Time.
	Date
	// Text keeps the provider string.
	Text
)

func (t FieldType) String() string {
	switch t {
	case Number:
		return "number"
	case Float:
		return "float"
	case Date:
		return "date"
	default:
		return "text"
	}
}

// FieldSpec declares one known field of a kind.
type FieldSpec struct {
	Name string
	Type FieldType
}

// Schema is the explicit field table for one kind. Fields fixes column order
// and types for known fields; anything else the provider sends gets Default
// and is ordered alphabetically after the known fields.
type Schema struct {
	Fields  []FieldSpec
	Default FieldType
}

// TypeOf returns the declared type of a field.
func (s Schema) TypeOf(name string) FieldType {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return s.Default
}

// Order returns the present field names in column order.
func (s Schema) Order(present map[string]struct{}) []string {
	out := make([]string, 0, len(present))
	known := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = struct{}{}
		if _, ok := present[f.Name]; ok {
			out = append(out, f.Name)
		}
	}
	var extra []string
	for name := range present {
		if _, ok := known[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func fields(t FieldType, names ...string) []FieldSpec {
	out := make([]FieldSpec, len(names))
	for i, n := range names {
		out[i] = FieldSpec{Name: n, Type: t}
	}
	return out
}

func concat(parts ...[]FieldSpec) []FieldSpec {
	var out []FieldSpec
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// OverviewSchema covers the company overview snapshot.
var OverviewSchema = Schema{
	Fields: concat(
		fields(Text, "Symbol", "AssetType", "Name", "Description", "CIK", "Exchange", "Currency",
			"Country", "Sector", "Industry", "Address", "OfficialSite", "FiscalYearEnd"),
		fields(Date, "LatestQuarter"),
		fields(Number, "MarketCapitalization", "EBITDA", "PERatio", "PEGRatio", "BookValue",
			"DividendPerShare", "DividendYield", "EPS", "RevenuePerShareTTM", "ProfitMargin",
			"OperatingMarginTTM", "ReturnOnAssetsTTM", "ReturnOnEquityTTM", "RevenueTTM",
			"GrossProfitTTM", "DilutedEPSTTM", "QuarterlyEarningsGrowthYOY", "QuarterlyRevenueGrowthYOY",
			"AnalystTargetPrice", "AnalystRatingStrongBuy", "AnalystRatingBuy", "AnalystRatingHold",
			"AnalystRatingSell", "AnalystRatingStrongSell", "TrailingPE", "ForwardPE",
			"PriceToSalesRatioTTM", "PriceToBookRatio", "EVToRevenue", "EVToEBITDA", "Beta",
			"52WeekHigh", "52WeekLow", "50DayMovingAverage", "200DayMovingAverage",
			"SharesOutstanding", "SharesFloat", "PercentInsiders", "PercentInstitutions"),
		fields(Date, "DividendDate", "ExDividendDate"),
	),
	Default: Number,
}

// DailyPricesSchema covers the adjusted daily series after key cleanup.
var DailyPricesSchema = Schema{
	Fields: fields(Float, "open", "high", "low", "close", "adjusted_close", "volume",
		"dividend_amount", "split_coefficient"),
	Default: Float,
}

var statementHead = concat(
	fields(Date, "fiscalDateEnding"),
	fields(Text, "reportedCurrency"),
)

// BalanceSheetSchema covers one balance sheet report.
var BalanceSheetSchema = Schema{
	Fields: concat(statementHead, fields(Number,
		"totalAssets", "totalCurrentAssets", "cashAndCashEquivalentsAtCarryingValue",
		"cashAndShortTermInvestments", "inventory", "currentNetReceivables", "totalNonCurrentAssets",
		"propertyPlantEquipment", "accumulatedDepreciationAmortizationPPE", "intangibleAssets",
		"intangibleAssetsExcludingGoodwill", "goodwill", "investments", "longTermInvestments",
		"shortTermInvestments", "otherCurrentAssets", "otherNonCurrentAssets", "totalLiabilities",
		"totalCurrentLiabilities", "currentAccountsPayable", "deferredRevenue", "currentDebt",
		"shortTermDebt", "totalNonCurrentLiabilities", "capitalLeaseObligations", "longTermDebt",
		"currentLongTermDebt", "longTermDebtNoncurrent", "shortLongTermDebtTotal",
		"otherCurrentLiabilities", "otherNonCurrentLiabilities", "totalShareholderEquity",
		"treasuryStock", "retainedEarnings", "commonStock", "commonStockSharesOutstanding",
	)),
	Default: Number,
}

// IncomeStatementSchema covers one income statement report.
var IncomeStatementSchema = Schema{
	Fields: concat(statementHead, fields(Number,
		"grossProfit", "totalRevenue", "costOfRevenue", "costofGoodsAndServicesSold",
		"operatingIncome", "sellingGeneralAndAdministrative", "researchAndDevelopment",
		"operatingExpenses", "investmentIncomeNet", "netInterestIncome", "interestIncome",
		"interestExpense", "nonInterestIncome", "otherNonOperatingIncome", "depreciation",
		"depreciationAndAmortization", "incomeBeforeTax", "incomeTaxExpense",
		"interestAndDebtExpense", "netIncomeFromContinuingOperations",
		"comprehensiveIncomeNetOfTax", "ebit", "ebitda", "netIncome",
	)),
	Default: Number,
}

// DefaultSchemas maps every kind to its schema.
func DefaultSchemas() map[provider.Kind]Schema {
	return map[provider.Kind]Schema{
		provider.KindOverview:        OverviewSchema,
		provider.KindDailyPrices:     DailyPricesSchema,
		provider.KindBalanceSheet:    BalanceSheetSchema,
		provider.KindIncomeStatement: IncomeStatementSchema,
	}
}
