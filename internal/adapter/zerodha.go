package adapter

import (
	"bufio"
	"encoding/csv"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/models"
	"tradeaudit/pkg/utils"
)

// zerodhaRow mirrors one row of a Zerodha console tradebook export.
type zerodhaRow struct {
	Symbol             string `csv:"symbol"`
	ISIN               string `csv:"isin"`
	TradeDate          string `csv:"trade_date"`
	Exchange           string `csv:"exchange"`
	Segment            string `csv:"segment"`
	Series             string `csv:"series"`
	TradeType          string `csv:"trade_type"`
	Auction            string `csv:"auction"`
	Quantity           string `csv:"quantity"`
	Price              string `csv:"price"`
	TradeID            string `csv:"trade_id"`
	OrderID            string `csv:"order_id"`
	OrderExecutionTime string `csv:"order_execution_time"`
}

// zerodhaAdapter parses Zerodha tradebook CSVs. The tradebook carries no
// charge columns, so fills leave Charges nil for the charge model.
type zerodhaAdapter struct{}

func (a *zerodhaAdapter) Broker() models.Broker { return models.BrokerZerodha }

func (a *zerodhaAdapter) Variants() []string { return []string{"Equity Tradebook"} }

func (a *zerodhaAdapter) Fingerprint() []string {
	return []string{"symbol", "order_execution_time", "trade_type"}
}

func (a *zerodhaAdapter) Required() []string {
	return []string{"symbol", "trade_date", "trade_type", "quantity", "price", "order_execution_time"}
}

func (a *zerodhaAdapter) Parse(r io.Reader, src string) ([]models.Fill, error) {
	var rows []*zerodhaRow
	if err := readRows(r, &rows); err != nil {
		return nil, apperrors.NewParseError(string(a.Broker()), src, 0, err)
	}

	fills := make([]models.Fill, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 2 // 1-based, after the header

		side, err := parseSide(row.TradeType)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		qty, err := parseQuantity(row.Quantity)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		price, err := parseDecimal(row.Price)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}
		executedAt, err := a.parseTime(row.OrderExecutionTime, row.TradeDate)
		if err != nil {
			return nil, apperrors.NewParseError(string(a.Broker()), src, rowNum,
				apperrors.Wrap(apperrors.ErrSchemaMismatch, err.Error()))
		}

		id := row.TradeID
		if id == "" {
			id = synthID(a.Broker(), src, rowNum)
		}

		segment := models.SegmentEquity
		if normalizeSymbol(row.Segment) == "FO" || mapExchange(row.Exchange) == models.NFO {
			segment = models.SegmentDerivatives
		}

		fills = append(fills, models.Fill{
			ID:         id,
			Broker:     a.Broker(),
			Symbol:     normalizeSymbol(row.Symbol),
			ISIN:       row.ISIN,
			Exchange:   mapExchange(row.Exchange),
			Segment:    segment,
			Side:       side,
			Quantity:   qty,
			Price:      price,
			ExecutedAt: executedAt,
			SourceFile: src,
			SourceRow:  rowNum,
		})
	}
	return fills, nil
}

// parseTime accepts both execution-time layouts the console has exported,
// falling back to the trade date at midnight.
func (a *zerodhaAdapter) parseTime(execution, tradeDate string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, execution, utils.IndiaLocation); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", tradeDate, utils.IndiaLocation); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.Wrapf(apperrors.ErrSchemaMismatch, "bad execution time %q", execution)
}

// readRows decodes a CSV stream into row structs via gocsv, stripping any
// leading BOM.
func readRows(r io.Reader, out interface{}) error {
	br := bufio.NewReader(r)
	stripBOM(br)
	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true
	if err := gocsv.UnmarshalCSV(cr, out); err != nil {
		if err == gocsv.ErrEmptyCSVFile {
			return nil
		}
		return err
	}
	return nil
}
