package feed

import (
	"encoding/json"
	"errors"
	"testing"

	"wxarb/pkg/types"
)

func TestDecodeAdded(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"type":"ADDED","sequence":7,"product":"SYD_AIRPORT_DEC24","id":42,"side":"BUY","price":"34.50","filled":0,"resting":5,"owner":"self"}`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	added, ok := msg.(AddedMsg)
	if !ok {
		t.Fatalf("got %T, want AddedMsg", msg)
	}
	if added.Seq() != 7 {
		t.Errorf("sequence = %d, want 7", added.Seq())
	}
	if added.Kind() != "ADDED" {
		t.Errorf("kind = %s, want ADDED", added.Kind())
	}
	if added.ID != 42 || added.Side != types.Buy || added.Price != 3450 || added.Resting != 5 {
		t.Errorf("unexpected decode: %+v", added)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	t.Parallel()
	_, err := Decode([]byte(`{"type":"BOGUS","sequence":1}`))
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
	if !errors.Is(err, types.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()
	_, err := Decode([]byte(`not json`))
	if err == nil || !errors.Is(err, types.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestAddMessageRoundTrip(t *testing.T) {
	t.Parallel()
	original := NewIOC("SYD_AIRPORT_DEC24", types.Buy, types.NewPriceFromHundredths(1200), types.Volume(5))

	encoded, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded AddMessage
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if decoded.OrderType != types.IOC {
		t.Errorf("order type = %s, want IOC", decoded.OrderType)
	}
}

func TestDecodeAllKinds(t *testing.T) {
	t.Parallel()
	frames := map[string][]byte{
		"FUTURE":       []byte(`{"type":"FUTURE","sequence":1,"product":"P","stationId":66037,"stationName":"Sydney Airport","expiry":"2024-12-01","haltTime":"2024-12-01","unit":"C","strike":"0","aggressiveFee":"0","passiveFee":"0","announcementFee":"0","incentiveRebatePerUnit":"0","maxIncentiveRebate":"0","brokerFee":"0"}`),
		"ADDED":        []byte(`{"type":"ADDED","sequence":7,"product":"P","id":3,"side":"BUY","price":"9.50","filled":0,"resting":4,"owner":"a"}`),
		"DELETED":      []byte(`{"type":"DELETED","sequence":2,"product":"P","id":1,"side":"SELL"}`),
		"TRADE":        []byte(`{"type":"TRADE","sequence":3,"product":"P","price":"10.00","volume":2,"buyer":"a","seller":"b","tradeType":"BUY_AGGRESSOR","passiveOrder":1,"passiveOrderRemaining":3,"aggressorOrder":2}`),
		"SETTLEMENT":   []byte(`{"type":"SETTLEMENT","sequence":4,"product":"P","stationName":"x","expiry":"2024-12-01","price":"10.00"}`),
		"INDEX":        []byte(`{"type":"INDEX","sequence":5,"indexId":1,"indexName":"IDX","stationIds":[66037,66212,70351]}`),
		"TRADING_HALT": []byte(`{"type":"TRADING_HALT","sequence":6,"product":"P"}`),
	}
	for tag, raw := range frames {
		msg, err := Decode(raw)
		if err != nil {
			t.Fatalf("%s: decode: %v", tag, err)
		}
		if msg.Kind() != tag {
			t.Errorf("%s: kind = %s", tag, msg.Kind())
		}
	}
}

func TestFutureMsgStation(t *testing.T) {
	t.Parallel()
	m := FutureMsg{StationID: 66212}
	st, err := m.Station()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != types.SydOlympicPark {
		t.Errorf("got %s, want SydOlympicPark", st)
	}
}
