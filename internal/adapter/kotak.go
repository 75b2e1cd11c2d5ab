package adapter

import (
	"io"
	"time"

	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/models"
	"tradeaudit/pkg/utils"
)

// kotakRow mirrors one row of a Kotak Securities transaction statement.
// The same layout serves both equity and derivative statements; the
// security name distinguishes them per row.
type kotakRow struct {
	TradeDate       string `csv:"Trade Date"`
	TradeTime       string `csv:"Trade Time"`
	OrderTime       string `csv:"Order Time"`
	SecurityName    string `csv:"Security Name"`
	ISIN            string `csv:"ISIN"`
	Exchange        string `csv:"Exchange"`
	OrderSource     string `csv:"Order Source"`
	TransactionType string `csv:"Transaction Type"`
	Quantity        string `csv:"Quantity"`
	MarketRate      string `csv:"Market Rate"`
	Total           string `csv:"Total"`
	GST             string `csv:"GST"`
	Brokerage       string `csv:"Brokerage"`
	Misc            string `csv:"Misc."`
	TotalCharges    string `csv:"Total Charges"`
	STT             string `csv:"STT/CTT"`
}

// kotakAdapter parses Kotak statements. The statement carries a complete
// charge breakdown per execution, trusted as-is.
type kotakAdapter struct{}

func (a *kotakAdapter) Broker() models.Broker { return models.BrokerKotak }

func (a *kotakAdapter) Variants() []string {
	return []string{"Equity Statement", "Derivatives Statement"}
}

func (a *kotakAdapter) Fingerprint() []string {
	return []string{"trade date", "security name", "transaction type"}
}

func (a *kotakAdapter) Required() []string {
	return []string{"Trade Date", "Security Name", "Transaction Type", "Quantity", "Market Rate", "Total Charges"}
}

func (a *kotakAdapter) Parse(r io.Reader, src string) ([]models.Fill, error) {
	var rows []*kotakRow
	if err := readRows(r, &rows); err != nil {
		return nil, apperrors.NewParseError(string(a.Broker()), src, 0, err)
	}

	fills := make([]models.Fill, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 2

		side, err := parseSide(row.TransactionType)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		qty, err := parseQuantity(row.Quantity)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		price, err := parseDecimal(row.MarketRate)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		executedAt, err := a.parseTime(row.TradeDate, row.TradeTime)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		charges, err := a.parseCharges(row)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}

		segment := models.SegmentEquity
		if derivativeName(row.SecurityName) {
			segment = models.SegmentDerivatives
		}

		fills = append(fills, models.Fill{
			ID:         synthID(a.Broker(), src, rowNum),
			Broker:     a.Broker(),
			Symbol:     normalizeSymbol(row.SecurityName),
			ISIN:       row.ISIN,
			Exchange:   mapExchange(row.Exchange),
			Segment:    segment,
			Side:       side,
			Quantity:   qty,
			Price:      price,
			ExecutedAt: executedAt,
			SourceFile: src,
			SourceRow:  rowNum,
			Charges:    charges,
		})
	}
	return fills, nil
}

// parseTime combines the DD/MM/YYYY trade date with the trade time,
// falling back to midnight when the statement has no time.
func (a *kotakAdapter) parseTime(date, clock string) (time.Time, error) {
	if clock != "" {
		if t, err := time.ParseInLocation("02/01/2006 15:04:05", date+" "+clock, utils.IndiaLocation); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("02/01/2006", date, utils.IndiaLocation); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.Wrapf(apperrors.ErrSchemaMismatch, "bad trade date %q", date)
}

// parseCharges reads the statement's charge breakdown. Total Charges is
// authoritative even when the components do not sum to it exactly.
func (a *kotakAdapter) parseCharges(row *kotakRow) (*models.FillCharges, error) {
	brokerage, err := parseOptionalDecimal(row.Brokerage)
	if err != nil {
		return nil, err
	}
	gst, err := parseOptionalDecimal(row.GST)
	if err != nil {
		return nil, err
	}
	stt, err := parseOptionalDecimal(row.STT)
	if err != nil {
		return nil, err
	}
	misc, err := parseOptionalDecimal(row.Misc)
	if err != nil {
		return nil, err
	}
	total, err := parseDecimal(row.TotalCharges)
	if err != nil {
		return nil, err
	}
	return &models.FillCharges{
		Brokerage: brokerage,
		GST:       gst,
		STT:       stt,
		Other:     misc,
		Total:     total,
	}, nil
}
