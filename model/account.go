package model

// Grade is the customer tier derived from cumulative charges.
type Grade string

const (
	GradeBronze  Grade = "Bronze"
	GradeSilver  Grade = "Silver"
	GradeGold    Grade = "Gold"
	GradeDiamond Grade = "Diamond"
	GradeVIP     Grade = "VIP"
)

// Cumulative charge needed to reach each grade.
const (
	SilverThreshold  int64 = 500000
	GoldThreshold    int64 = 1500000
	DiamondThreshold int64 = 3000000
	VIPThreshold     int64 = 5000000
)

// GradeFor returns the grade earned by the given cumulative charge.
func GradeFor(totalCharge int64) Grade {
	switch {
	case totalCharge >= VIPThreshold:
		return GradeVIP
	case totalCharge >= DiamondThreshold:
		return GradeDiamond
	case totalCharge >= GoldThreshold:
		return GradeGold
	case totalCharge >= SilverThreshold:
		return GradeSilver
	default:
		return GradeBronze
	}
}

// NextThreshold is the cumulative charge needed for the grade after g. VIP
// returns its own threshold.
func NextThreshold(g Grade) int64 {
	switch g {
	case GradeSilver:
		return GoldThreshold
	case GradeGold:
		return DiamondThreshold
	case GradeDiamond, GradeVIP:
		return VIPThreshold
	default:
		return SilverThreshold
	}
}

// Account is the customer record the purchase flow reads and debits.
type Account struct {
	CustomerID  int64  `json:"customer_id"`
	LoginID     string `json:"login_id"`
	NickName    string `json:"nickname"`
	Balance     int64  `json:"balance"`
	TotalCharge int64  `json:"total_charge"`
	Grade       Grade  `json:"grade"`
}
