package adapter

import (
	"io"
	"strings"
	"time"

	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/models"
	"tradeaudit/pkg/utils"
)

// iciciRow mirrors one row of an ICICI Direct orderbook export. Numeric
// fields may carry comma thousands separators.
type iciciRow struct {
	Date                string `csv:"Date"`
	Stock               string `csv:"Stock"`
	Action              string `csv:"Action"`
	Qty                 string `csv:"Qty"`
	Price               string `csv:"Price"`
	TradeValue          string `csv:"Trade Value"`
	OrderRef            string `csv:"Order Ref."`
	Settlement          string `csv:"Settlement"`
	Segment             string `csv:"Segment"`
	DPID                string `csv:"DP Id"`
	Exchange            string `csv:"Exchange"`
	STT                 string `csv:"STT"`
	TxnSEBI             string `csv:"Transaction and SEBI Turnover charges"`
	StampDuty           string `csv:"Stamp Duty"`
	BrokerageServiceTax string `csv:"Brokerage + Service Tax"`
	BrokerageInclTaxes  string `csv:"Brokerage Incl. Taxes"`
}

// iciciAdapter parses ICICI Direct orderbooks. The orderbook has no
// execution times, only dates: fills land at midnight IST and rely on
// file order for sequencing.
type iciciAdapter struct{}

func (a *iciciAdapter) Broker() models.Broker { return models.BrokerICICI }

func (a *iciciAdapter) Variants() []string { return []string{"Equity Orderbook"} }

func (a *iciciAdapter) Fingerprint() []string {
	return []string{"stock", "order ref.", "settlement"}
}

func (a *iciciAdapter) Required() []string {
	return []string{"Date", "Stock", "Action", "Qty", "Price"}
}

func (a *iciciAdapter) Parse(r io.Reader, src string) ([]models.Fill, error) {
	var rows []*iciciRow
	if err := readRows(r, &rows); err != nil {
		return nil, apperrors.NewParseError(string(a.Broker()), src, 0, err)
	}

	fills := make([]models.Fill, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 2

		side, err := parseSide(row.Action)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		qty, err := parseQuantity(row.Qty)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		price, err := parseDecimal(row.Price)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		executedAt, err := time.ParseInLocation("02-Jan-06", strings.TrimSpace(row.Date), utils.IndiaLocation)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, "bad date "+row.Date))
		}
		charges, err := a.parseCharges(row)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}

		segment := models.SegmentEquity
		if up := strings.ToUpper(row.Segment); strings.Contains(up, "FNO") || strings.Contains(up, "DERIVATIVE") {
			segment = models.SegmentDerivatives
		}

		fills = append(fills, models.Fill{
			ID:         synthID(a.Broker(), src, rowNum),
			Broker:     a.Broker(),
			Symbol:     normalizeSymbol(row.Stock),
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

// parseCharges reads the orderbook's charge columns. ICICI publishes no
// total, so Total is the component sum.
func (a *iciciAdapter) parseCharges(row *iciciRow) (*models.FillCharges, error) {
	stt, err := parseOptionalDecimal(row.STT)
	if err != nil {
		return nil, err
	}
	txn, err := parseOptionalDecimal(row.TxnSEBI)
	if err != nil {
		return nil, err
	}
	stamp, err := parseOptionalDecimal(row.StampDuty)
	if err != nil {
		return nil, err
	}
	brokerage, err := parseOptionalDecimal(row.BrokerageInclTaxes)
	if err != nil {
		return nil, err
	}
	c := &models.FillCharges{
		STT:         stt,
		ExchangeTxn: txn,
		StampDuty:   stamp,
		Brokerage:   brokerage,
	}
	c.Total = c.Sum()
	return c, nil
}
