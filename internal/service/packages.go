package service

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var ErrInvalidPackage = errors.New("invalid package")

const (
	DefaultExtensionMonths = 3

	extensionPriceBeforeExpiry int64 = 45000
	extensionPriceAfterExpiry  int64 = 50000
)

type PassPackage struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	Count          int    `json:"count"`
	Price          int64  `json:"price"`
	ValidityMonths int    `json:"validity_months"`
}

type PremiumPackage struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Months int    `json:"months"`
	Price  int64  `json:"price"`
}

var passPackages = map[string]PassPackage{
	"basic":   {Key: "basic", Name: "기본 패키지", Count: 10, Price: 50000, ValidityMonths: 3},
	"premium": {Key: "premium", Name: "프리미엄 패키지", Count: 20, Price: 90000, ValidityMonths: 3},
	"deluxe":  {Key: "deluxe", Name: "디럭스 패키지", Count: 30, Price: 130000, ValidityMonths: 3},
}

var premiumPackages = map[string]PremiumPackage{
	"1month": {Key: "1month", Name: "1개월 프리미엄", Months: 1, Price: 30000},
	"2month": {Key: "2month", Name: "2개월 프리미엄", Months: 2, Price: 50000},
	"3month": {Key: "3month", Name: "3개월 프리미엄", Months: 3, Price: 80000},
}

func LookupPassPackage(key string) (PassPackage, error) {
	pkg, ok := passPackages[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return PassPackage{}, ErrInvalidPackage
	}
	return pkg, nil
}

func LookupPremiumPackage(key string) (PremiumPackage, error) {
	pkg, ok := premiumPackages[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return PremiumPackage{}, ErrInvalidPackage
	}
	return pkg, nil
}

// PassPackages lists the viewing-pass catalog, cheapest first.
func PassPackages() []PassPackage {
	out := make([]PassPackage, 0, len(passPackages))
	for _, pkg := range passPackages {
		out = append(out, pkg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// PremiumPackages lists the premium catalog, shortest first.
func PremiumPackages() []PremiumPackage {
	out := make([]PremiumPackage, 0, len(premiumPackages))
	for _, pkg := range premiumPackages {
		out = append(out, pkg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Months < out[j].Months })
	return out
}

// ExtensionPrice is discounted while the pass is still valid.
func ExtensionPrice(beforeExpiry bool) int64 {
	if beforeExpiry {
		return extensionPriceBeforeExpiry
	}
	return extensionPriceAfterExpiry
}

func addMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
