package processor

import "github.com/shopspring/decimal"

// VolumeRangeDB is the usable attenuation range of the volume curve: level 0
// maps to -60 dB, level 1 to 0 dB. The device itself reports volume down to
// -100 dB; anything at or below -60 dB is treated as level 0.
const VolumeRangeDB = 60

// volumePrecision is the number of decimal digits carried through the
// curve arithmetic. UI-facing values are rounded much coarser (2 places
// for levels, whole points for percentages).
const volumePrecision = 24

var (
	decOne     = decimal.NewFromInt(1)
	decTen     = decimal.NewFromInt(10)
	decTwenty  = decimal.NewFromInt(20)
	decHundred = decimal.NewFromInt(100)

	volumeRange = decimal.NewFromInt(VolumeRangeDB)
	minVolumeDB = volumeRange.Neg()

	// logA is the amplitude ratio at the bottom of the range: 10^(-R/20).
	// logB is ln(1/logA). Together they define the curve
	// db = 20*log10(logA * e^(logB*level)).
	logA = decOne.Div(decTen.Pow(volumeRange.Div(decTwenty)))
	logB decimal.Decimal
	ln10 decimal.Decimal
)

func init() {
	var err error
	if logB, err = decOne.Div(logA).Ln(volumePrecision); err != nil {
		panic(err)
	}
	if ln10, err = decTen.Ln(volumePrecision); err != nil {
		panic(err)
	}
}

// LevelToDB converts a normalised volume level (0..1) to decibels (-60..0).
//
// The mapping is logarithmic in amplitude so that equal level steps feel
// like equal loudness steps. Values outside [0,1] clamp to the boundaries.
func LevelToDB(level decimal.Decimal) decimal.Decimal {
	if level.Cmp(decimal.Zero) <= 0 {
		return minVolumeDB
	}
	if level.Cmp(decOne) >= 0 {
		return decimal.Zero
	}

	exp, err := logB.Mul(level).ExpTaylor(volumePrecision)
	if err != nil {
		return minVolumeDB
	}
	lnX, err := logA.Mul(exp).Ln(volumePrecision)
	if err != nil {
		return minVolumeDB
	}
	return decTwenty.Mul(lnX).DivRound(ln10, volumePrecision)
}

// DBToLevel converts decibels (-60..0) to a normalised volume level (0..1).
//
// Inverse of LevelToDB. Values outside [-60, 0] clamp to the boundaries,
// which also covers the device's full [-100, 0] reporting range.
func DBToLevel(volumeDB decimal.Decimal) decimal.Decimal {
	if volumeDB.Cmp(minVolumeDB) <= 0 {
		return decimal.Zero
	}
	if volumeDB.Cmp(decimal.Zero) >= 0 {
		return decOne
	}

	amp, err := decTen.PowWithPrecision(volumeDB.DivRound(decTwenty, volumePrecision), volumePrecision)
	if err != nil {
		return decimal.Zero
	}
	lnRatio, err := amp.DivRound(logA, volumePrecision).Ln(volumePrecision)
	if err != nil {
		return decimal.Zero
	}
	return lnRatio.DivRound(logB, volumePrecision)
}

// RoundLevel rounds a normalised level to the 2 decimal places used at the
// UI boundary before conversion to decibels.
func RoundLevel(level decimal.Decimal) decimal.Decimal {
	return level.Round(2)
}

// LevelToPercent converts a normalised level to a whole percentage point.
func LevelToPercent(level decimal.Decimal) int {
	return int(level.Mul(decHundred).Round(0).IntPart())
}

// PercentToLevel converts a whole percentage point to a normalised level,
// rounded to 2 decimal places.
func PercentToLevel(percent int) decimal.Decimal {
	return decimal.NewFromInt(int64(percent)).Div(decHundred).Round(2)
}
