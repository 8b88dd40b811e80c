package models

// MerchantInfo is the result of extracting merchant identity from a
// transaction title. Confidence is in [0,1] and grades how specific the
// matched pattern was; 0.0 means nothing could be extracted.
type MerchantInfo struct {
	MerchantName    string
	StoreIdentifier string
	Location        string
	RawText         string
	Confidence      float64
}
