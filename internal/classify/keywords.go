package classify

import (
	"strings"

	"github.com/Veraticus/smsflow/internal/model"
)

// keyword maps a token found in a sender id or body to a display name.
type keyword struct {
	token string
	name  string
}

// Sender id tokens, matched as uppercase substrings of the cleaned sender.
var (
	bankSenderTokens = []string{
		"HDFC", "ICICI", "SBI", "AXIS", "KOTAK", "YESBNK", "YESBK", "PNB", "BOB", "BARODA",
		"CANARA", "CANBNK", "IDFC", "INDUS", "FEDBNK", "FEDERAL", "UNIONB", "UBOI", "BOI",
		"IOB", "CENTBK", "AUBANK", "RBL", "IDBI", "SCBANK", "CITI", "HSBC", "DBS", "BANK", "BNK",
	}
	walletSenderTokens = []string{
		"PAYTM", "PHONEPE", "PHONPE", "GPAY", "GOOGLEPAY", "MOBIKWIK", "MOBIKW", "AMAZONPAY",
		"AMZPAY", "FREECHARGE", "FRCHRG", "OLAMONEY", "JIOMNY", "JIOMONEY", "AIRTELMONEY", "BHIM",
	}
	promoSenderTokens = []string{"PROMO", "OFFER", "DEALS", "SALE", "ADS"}
)

// merchantKeywords is ordered; earlier entries win when a sender id contains several.
var merchantKeywords = []keyword{
	{"swiggy", "Swiggy"},
	{"zomato", "Zomato"},
	{"amazon", "Amazon"},
	{"flipkart", "Flipkart"},
	{"myntra", "Myntra"},
	{"ajio", "Ajio"},
	{"nykaa", "Nykaa"},
	{"bigbasket", "BigBasket"},
	{"blinkit", "Blinkit"},
	{"zepto", "Zepto"},
	{"dunzo", "Dunzo"},
	{"dmart", "DMart"},
	{"uber", "Uber"},
	{"ola", "Ola"},
	{"rapido", "Rapido"},
	{"irctc", "IRCTC"},
	{"makemytrip", "MakeMyTrip"},
	{"goibibo", "Goibibo"},
	{"redbus", "RedBus"},
	{"indigo", "IndiGo"},
	{"netflix", "Netflix"},
	{"spotify", "Spotify"},
	{"hotstar", "Hotstar"},
	{"bookmyshow", "BookMyShow"},
	{"airtel", "Airtel"},
	{"jio", "Jio"},
	{"vodafone", "Vodafone"},
	{"bescom", "BESCOM"},
	{"tatapower", "TataPower"},
	{"apollo", "Apollo"},
	{"pharmeasy", "PharmEasy"},
	{"1mg", "1mg"},
	{"byjus", "BYJUS"},
	{"udemy", "Udemy"},
	{"indianoil", "IndianOil"},
	{"hpcl", "HPCL"},
	{"bpcl", "BPCL"},
}

var (
	merchantBodyList = newPhraseList(merchantTokens()...)
	merchantByToken  = merchantIndex()
)

func merchantTokens() []string {
	tokens := make([]string, len(merchantKeywords))
	for i, k := range merchantKeywords {
		tokens[i] = k.token
	}
	return tokens
}

func merchantIndex() map[string]string {
	idx := make(map[string]string, len(merchantKeywords))
	for _, k := range merchantKeywords {
		idx[k.token] = k.name
	}
	return idx
}

// merchantInSender returns the display name of the first merchant token in a sender id.
func merchantInSender(senderID string) (keyword, bool) {
	lower := strings.ToLower(senderID)
	for _, k := range merchantKeywords {
		if strings.Contains(lower, k.token) {
			return k, true
		}
	}
	return keyword{}, false
}

func containsToken(s string, tokens []string) (string, bool) {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return t, true
		}
	}
	return "", false
}

// Body phrase lists shared by the intent, category and linking rules.
var (
	promoBodyList = newPhraseList(
		"offer", "sale", "discount", "coupon", "voucher", "congratulations", "limited period",
		"limited time", "hurry", "click here", "shop now", "free", "win", "exclusive deal",
	)
	otpList = newPhraseList("otp", "one time password", "verification code")
)

// categoryTable is tried in order; the first table with a keyword in the text wins.
var categoryTable = []struct {
	category string
	words    phraseList
}{
	{model.CategoryFood, newPhraseList(
		"swiggy", "zomato", "restaurant", "cafe", "food", "pizza", "dominos", "mcdonald", "kfc",
		"starbucks", "eatsure", "bakery", "dine", "biryani",
	)},
	{model.CategoryTravel, newPhraseList(
		"uber", "ola", "rapido", "irctc", "makemytrip", "goibibo", "redbus", "indigo", "airline",
		"flight", "metro", "cab", "taxi", "railway", "fastag", "toll",
	)},
	{model.CategoryShopping, newPhraseList(
		"amazon", "flipkart", "myntra", "ajio", "nykaa", "bigbasket", "blinkit", "zepto", "dunzo",
		"dmart", "mall", "store", "mart", "retail", "shopping", "bazaar",
	)},
	{model.CategoryFuel, newPhraseList(
		"petrol", "diesel", "fuel", "indianoil", "indian oil", "hpcl", "bpcl", "shell", "filling station",
	)},
	{model.CategoryUtilities, newPhraseList(
		"electricity", "bescom", "tatapower", "tata power", "water", "piped gas", "broadband",
		"airtel", "jio", "vodafone", "recharge", "postpaid", "prepaid",
	)},
	{model.CategoryBills, newPhraseList(
		"bill", "emi", "insurance", "premium", "loan", "rent", "credit card",
	)},
	{model.CategoryEntertainment, newPhraseList(
		"netflix", "spotify", "hotstar", "prime video", "bookmyshow", "movie", "cinema", "pvr",
		"inox", "gaming",
	)},
	{model.CategoryHealth, newPhraseList(
		"hospital", "pharmacy", "apollo", "pharmeasy", "1mg", "medical", "medicines", "clinic",
		"diagnostic", "doctor",
	)},
	{model.CategoryEducation, newPhraseList(
		"school", "college", "tuition", "course", "udemy", "byjus", "coursera", "university", "exam fee",
	)},
	{model.CategoryATMCash, newPhraseList(
		"atm", "cash withdrawal", "cash wdl", "withdrawn",
	)},
	{model.CategoryTransfer, newPhraseList(
		"upi", "neft", "imps", "rtgs", "transfer", "transferred", "sent to",
	)},
}

// isKnownKeyword reports whether a single word is a merchant or category keyword.
func isKnownKeyword(word string) bool {
	w := strings.ToLower(word)
	if _, ok := merchantByToken[w]; ok {
		return true
	}
	for _, row := range categoryTable {
		for _, k := range row.words.words {
			if k == w {
				return true
			}
		}
	}
	return false
}
