package adapter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/models"
	"tradeaudit/pkg/utils"
)

const zerodhaFixture = `symbol,isin,trade_date,exchange,segment,series,trade_type,auction,quantity,price,trade_id,order_id,order_execution_time
RELIANCE,INE002A01018,2025-06-02,NSE,EQ,EQ,buy,false,10,2856.50,200106000001,1100000000001,2025-06-02T10:15:32
RELIANCE,INE002A01018,2025-06-02,NSE,EQ,EQ,sell,false,10,2861.00,200106000002,1100000000002,2025-06-02T14:05:10
`

const kotakFixture = "\uFEFF" + `Trade Date,Trade Time,Order Time,Security Name,ISIN,Exchange,Order Source,Transaction Type,Quantity,Market Rate,Total,GST,Brokerage,Misc.,Total Charges,STT/CTT
02/06/2025,10:02:11,10:02:05,TATA MOTORS,INE155A01022,NSE,MOBILE,Buy,50,712.40,35620.00,3.60,20.00,1.55,30.75,5.60
02/06/2025,14:45:02,14:44:58,TATA MOTORS,INE155A01022,NSE,MOBILE,Sell,50,718.10,35905.00,3.60,20.00,1.58,61.03,35.85
`

const kotakDerivativesFixture = "\uFEFF" + `Trade Date,Trade Time,Order Time,Security Name,ISIN,Exchange,Order Source,Transaction Type,Quantity,Market Rate,Total,GST,Brokerage,Misc.,Total Charges,STT/CTT
02/06/2025,09:20:00,09:19:55,NIFTY 26JUN FUT,,NSE,WEB,Buy,75,23450.00,1758750.00,4.14,20.00,2.86,26.99,0.00
`

const iciciFixture = `Date,Stock,Action,Qty,Price,Trade Value,Order Ref.,Settlement,Segment,DP Id,Exchange,STT,Transaction and SEBI Turnover charges,Stamp Duty,Brokerage + Service Tax,Brokerage Incl. Taxes
17-Dec-25,HDFCBANK,Buy,12,"1,710.50","20,526.00",20251217N100001,2025234,Equity,IN300123,NSE,0.00,0.71,3.08,56.45,66.60
18-Dec-25,HDFCBANK,Sell,12,"1,722.00","20,664.00",20251218N100044,2025235,Equity,IN300123,NSE,20.66,0.72,0.00,56.83,67.06
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestDetectByFingerprint(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		want    models.Broker
	}{
		{"zerodha tradebook", zerodhaFixture, models.BrokerZerodha},
		{"kotak statement", kotakFixture, models.BrokerKotak},
		{"kotak derivatives statement", kotakDerivativesFixture, models.BrokerKotak},
		{"icici orderbook", iciciFixture, models.BrokerICICI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, _, err := Sniff(strings.NewReader(tt.fixture), tt.name)
			if err != nil {
				t.Fatalf("Sniff failed: %v", err)
			}
			a, err := Detect(tt.name, headers)
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if a.Broker() != tt.want {
				t.Errorf("detected %s, want %s", a.Broker(), tt.want)
			}
		})
	}
}

func TestDetectUnknownFormat(t *testing.T) {
	headers, _, err := Sniff(strings.NewReader("a,b,c\n1,2,3\n"), "mystery.csv")
	if err != nil {
		t.Fatalf("Sniff failed: %v", err)
	}
	_, err = Detect("mystery.csv", headers)
	if err == nil {
		t.Fatal("expected detection to fail")
	}
	if !apperrors.Is(err, apperrors.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestDetectEmptyFile(t *testing.T) {
	_, _, err := Sniff(strings.NewReader(""), "empty.csv")
	if !apperrors.Is(err, apperrors.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat for empty file, got %v", err)
	}
}

func TestSniffStripsBOM(t *testing.T) {
	headers, _, err := Sniff(strings.NewReader(kotakFixture), "kotak.csv")
	if err != nil {
		t.Fatalf("Sniff failed: %v", err)
	}
	if headers[0] != "Trade Date" {
		t.Errorf("BOM not stripped, first header %q", headers[0])
	}
}

func TestZerodhaParse(t *testing.T) {
	a := &zerodhaAdapter{}
	fills, err := a.Parse(strings.NewReader(zerodhaFixture), "tradebook.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(fills))
	}

	buy := fills[0]
	if buy.ID != "200106000001" {
		t.Errorf("expected trade_id as fill ID, got %q", buy.ID)
	}
	if buy.Symbol != "RELIANCE" || buy.Side != models.SideBuy {
		t.Errorf("unexpected symbol/side: %s %s", buy.Symbol, buy.Side)
	}
	if buy.Quantity != 10 || !buy.Price.Equal(decimal.RequireFromString("2856.50")) {
		t.Errorf("unexpected qty/price: %d %s", buy.Quantity, buy.Price)
	}
	if buy.Charges != nil {
		t.Error("tradebook fills must leave charges nil for the charge model")
	}
	want := time.Date(2025, 6, 2, 10, 15, 32, 0, utils.IndiaLocation)
	if !buy.ExecutedAt.Equal(want) {
		t.Errorf("expected execution at %v, got %v", want, buy.ExecutedAt)
	}
	if buy.Segment != models.SegmentEquity {
		t.Errorf("expected equity segment, got %s", buy.Segment)
	}
	if fills[1].Side != models.SideSell {
		t.Errorf("expected second fill sell, got %s", fills[1].Side)
	}
}

func TestKotakParseTrustedCharges(t *testing.T) {
	a := &kotakAdapter{}
	fills, err := a.Parse(strings.NewReader(kotakFixture), "kotak.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(fills))
	}

	sell := fills[1]
	if sell.Charges == nil {
		t.Fatal("statement charges must be carried on the fill")
	}
	if !sell.Charges.Total.Equal(decimal.RequireFromString("61.03")) {
		t.Errorf("expected trusted total 61.03, got %s", sell.Charges.Total)
	}
	if !sell.Charges.STT.Equal(decimal.RequireFromString("35.85")) {
		t.Errorf("expected STT 35.85, got %s", sell.Charges.STT)
	}
	if !sell.Charges.Brokerage.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("expected brokerage 20.00, got %s", sell.Charges.Brokerage)
	}
	want := time.Date(2025, 6, 2, 14, 45, 2, 0, utils.IndiaLocation)
	if !sell.ExecutedAt.Equal(want) {
		t.Errorf("expected execution at %v, got %v", want, sell.ExecutedAt)
	}
	if sell.Segment != models.SegmentEquity {
		t.Errorf("expected equity segment, got %s", sell.Segment)
	}
}

func TestKotakParseDerivativeSegment(t *testing.T) {
	a := &kotakAdapter{}
	fills, err := a.Parse(strings.NewReader(kotakDerivativesFixture), "kotak_fo.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if fills[0].Segment != models.SegmentDerivatives {
		t.Errorf("FUT security must classify as derivatives, got %s", fills[0].Segment)
	}
	if fills[0].Symbol != "NIFTY 26JUN FUT" {
		t.Errorf("unexpected symbol %q", fills[0].Symbol)
	}
}

func TestICICIParseCommaNumbers(t *testing.T) {
	a := &iciciAdapter{}
	fills, err := a.Parse(strings.NewReader(iciciFixture), "icici.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(fills))
	}

	buy := fills[0]
	if !buy.Price.Equal(decimal.RequireFromString("1710.50")) {
		t.Errorf("comma-separated price not cleaned: %s", buy.Price)
	}
	if buy.Quantity != 12 {
		t.Errorf("expected quantity 12, got %d", buy.Quantity)
	}
	want := time.Date(2025, 12, 17, 0, 0, 0, 0, utils.IndiaLocation)
	if !buy.ExecutedAt.Equal(want) {
		t.Errorf("expected midnight IST on trade date, got %v", buy.ExecutedAt)
	}
	if buy.Charges == nil {
		t.Fatal("orderbook charges must be carried on the fill")
	}
	// 0.00 + 0.71 + 3.08 + 66.60
	if !buy.Charges.Total.Equal(decimal.RequireFromString("70.39")) {
		t.Errorf("expected summed total 70.39, got %s", buy.Charges.Total)
	}
}

func TestParseRejectsBadRows(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{
			"unknown side",
			`symbol,isin,trade_date,exchange,segment,series,trade_type,auction,quantity,price,trade_id,order_id,order_execution_time
RELIANCE,,2025-06-02,NSE,EQ,EQ,hold,false,10,2856.50,1,1,2025-06-02T10:15:32
`,
		},
		{
			"zero quantity",
			`symbol,isin,trade_date,exchange,segment,series,trade_type,auction,quantity,price,trade_id,order_id,order_execution_time
RELIANCE,,2025-06-02,NSE,EQ,EQ,buy,false,0,2856.50,1,1,2025-06-02T10:15:32
`,
		},
		{
			"bad price",
			`symbol,isin,trade_date,exchange,segment,series,trade_type,auction,quantity,price,trade_id,order_id,order_execution_time
RELIANCE,,2025-06-02,NSE,EQ,EQ,buy,false,10,abc,1,1,2025-06-02T10:15:32
`,
		},
	}

	a := &zerodhaAdapter{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Parse(strings.NewReader(tt.fixture), "bad.csv")
			if err == nil {
				t.Fatal("expected parse to fail")
			}
			if !apperrors.Is(err, apperrors.ErrSchemaMismatch) {
				t.Errorf("expected ErrSchemaMismatch, got %v", err)
			}
			var perr *apperrors.ParseError
			if !apperrors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %T", err)
			}
			if perr.Row != 2 {
				t.Errorf("expected failure at row 2, got %d", perr.Row)
			}
		})
	}
}

func TestParseHeaderOnlyFile(t *testing.T) {
	a := &zerodhaAdapter{}
	header := strings.SplitAfter(zerodhaFixture, "\n")[0]
	fills, err := a.Parse(strings.NewReader(header), "empty.csv")
	if err != nil {
		t.Fatalf("header-only file must parse cleanly, got %v", err)
	}
	if len(fills) != 0 {
		t.Errorf("expected zero fills, got %d", len(fills))
	}
}

func TestParseFileAutoDetect(t *testing.T) {
	path := writeFixture(t, "tradebook.csv", zerodhaFixture)
	fills, broker, err := ParseFile(path, "auto")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if broker != models.BrokerZerodha {
		t.Errorf("expected zerodha, got %s", broker)
	}
	if len(fills) != 2 {
		t.Errorf("expected 2 fills, got %d", len(fills))
	}
	if fills[0].SourceFile != path {
		t.Errorf("expected source file %q, got %q", path, fills[0].SourceFile)
	}
}

func TestParseFileMissingRequiredColumn(t *testing.T) {
	// Fingerprint columns present, price column dropped.
	fixture := `symbol,trade_date,trade_type,quantity,trade_id,order_execution_time
RELIANCE,2025-06-02,buy,10,1,2025-06-02T10:15:32
`
	path := writeFixture(t, "nocolumn.csv", fixture)
	_, _, err := ParseFile(path, "auto")
	if err == nil {
		t.Fatal("expected schema mismatch")
	}
	if !apperrors.Is(err, apperrors.ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestParseFileExplicitBroker(t *testing.T) {
	path := writeFixture(t, "kotak.csv", kotakFixture)
	fills, broker, err := ParseFile(path, "kotak")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if broker != models.BrokerKotak {
		t.Errorf("expected kotak, got %s", broker)
	}
	if len(fills) != 2 {
		t.Errorf("expected 2 fills, got %d", len(fills))
	}
}

func TestForBrokerUnknown(t *testing.T) {
	_, err := ForBroker("sharekhan")
	if !apperrors.Is(err, apperrors.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
