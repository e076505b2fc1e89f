package types

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

type Direction uint8

const (
	Buy Direction = iota + 1
	Sell

	directionBuyStr  = "BUY"
	directionSellStr = "SELL"
)

var (
	directionBuyByte  = []byte(`"BUY"`)
	directionSellByte = []byte(`"SELL"`)
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return directionBuyStr
	case Sell:
		return directionSellStr
	}
	return "UNKNOWN(" + strconv.Itoa(int(d)) + ")"
}

// Opposite returns the direction that closes a position opened with d.
func (d Direction) Opposite() Direction {
	if d == Buy {
		return Sell
	}
	return Buy
}

func (d Direction) MarshalJSON() ([]byte, error) {
	switch d {
	case Buy:
		return directionBuyByte, nil
	case Sell:
		return directionSellByte, nil
	}
	return nil, errors.New("invalid direction json conversion: " + strconv.Itoa(int(d)))
}

func (d *Direction) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, directionBuyByte) {
		*d = Buy
		return nil
	}
	if bytes.Equal(data, directionSellByte) {
		*d = Sell
		return nil
	}
	return errors.New("unsupported direction: " + string(data))
}

// ParseDirection accepts BUY/SELL in any case.
func ParseDirection(value string) (Direction, error) {
	switch strings.ToUpper(value) {
	case directionBuyStr:
		return Buy, nil
	case directionSellStr:
		return Sell, nil
	}
	return 0, errors.New("unsupported direction: " + value)
}

// OrderType is the gateway order type code.
type OrderType string

const (
	OrderTypeMarket OrderType = "MKT"
	OrderTypeLimit  OrderType = "LMT"
	OrderTypeStop   OrderType = "STP"
)
