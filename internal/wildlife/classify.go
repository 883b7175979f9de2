package wildlife

import (
	"fmt"
	"time"
)

// Category is a movement-behavior classification.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryVegetation
	CategoryWeather
	CategoryInsect
	CategoryVehicle
	CategoryLargeMammal
	CategoryMediumMammal
	CategorySmallMammal
	CategorySmallBird
	CategoryLargeBird
	CategoryHuman
)

func (c Category) String() string {
	switch c {
	case CategoryVegetation:
		return "vegetation"
	case CategoryWeather:
		return "weather"
	case CategoryInsect:
		return "insect"
	case CategoryVehicle:
		return "vehicle"
	case CategoryLargeMammal:
		return "large-mammal"
	case CategoryMediumMammal:
		return "medium-mammal"
	case CategorySmallMammal:
		return "small-mammal"
	case CategorySmallBird:
		return "small-bird"
	case CategoryLargeBird:
		return "large-bird"
	case CategoryHuman:
		return "human"
	case CategoryUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// IsWildlife reports whether the category is an animal worth capturing.
// Humans, vehicles and environmental noise are not wildlife.
func (c Category) IsWildlife() bool {
	switch c {
	case CategoryLargeMammal, CategoryMediumMammal, CategorySmallMammal,
		CategorySmallBird, CategoryLargeBird:
		return true
	default:
		return false
	}
}

// Classification thresholds, tuned against the analysis resolution.
const (
	vegPeriodicity  = 0.6
	vegMaxSpeed     = 8.0
	vegMaxStability = 0.4

	weatherMinArea     = 0.5
	weatherPeriodicity = 0.3
	weatherMaxIntense  = 0.35

	insectMaxSize      = 0.005
	insectMinSpeed     = 30.0
	insectMaxStability = 0.35

	vehicleMinSpeed     = 60.0
	vehicleMinStability = 0.8
	vehicleMaxPeriod    = 0.25

	largeMinSize  = 0.25
	humanVertical = 0.6
	humanMinSpeed = 5.0
	smallMaxSize  = 0.02
	birdMinSpeed  = 25.0
	birdLargeSize = 0.05
)

// classify runs the first-match ladder over the characteristics and
// returns the category with a match confidence.
func classify(ch MovementCharacteristics) (Category, float64) {
	switch {
	case ch.Periodicity > vegPeriodicity && ch.Speed < vegMaxSpeed && ch.DirectionStability < vegMaxStability:
		return CategoryVegetation, 0.6 + 0.4*ch.Periodicity

	case ch.Size > weatherMinArea && ch.Periodicity > weatherPeriodicity && ch.Intensity < weatherMaxIntense:
		return CategoryWeather, 0.6

	case ch.Size < insectMaxSize && ch.Speed > insectMinSpeed && ch.DirectionStability < insectMaxStability:
		return CategoryInsect, 0.65

	case ch.Speed > vehicleMinSpeed && ch.DirectionStability > vehicleMinStability && ch.Periodicity < vehicleMaxPeriod:
		return CategoryVehicle, 0.7

	case ch.Size > largeMinSize:
		if ch.Verticality > humanVertical && ch.Speed > humanMinSpeed {
			return CategoryHuman, 0.6
		}
		return CategoryLargeMammal, 0.65

	case ch.Speed > birdMinSpeed:
		if ch.Size > birdLargeSize {
			return CategoryLargeBird, 0.6
		}
		return CategorySmallBird, 0.6

	case ch.Size < smallMaxSize:
		return CategorySmallMammal, 0.55

	default:
		return CategoryMediumMammal, 0.5
	}
}

// likelihood returns the wildlife-likelihood for a classified movement: a
// per-category base adjusted by intensity, dwell and size bonuses.
func likelihood(cat Category, ch MovementCharacteristics) float64 {
	var base float64
	switch cat {
	case CategoryLargeMammal:
		base = 0.85
	case CategoryMediumMammal:
		base = 0.7
	case CategorySmallMammal:
		base = 0.6
	case CategoryLargeBird:
		base = 0.65
	case CategorySmallBird:
		base = 0.55
	case CategoryHuman, CategoryVehicle:
		base = 0.05
	case CategoryInsect:
		base = 0.1
	default:
		base = 0
	}
	if base == 0 {
		return 0
	}

	bonus := 0.0
	if ch.Intensity > 0.5 {
		bonus += 0.05
	}
	if ch.DwellTime > 5*time.Second {
		bonus += 0.1
	}
	if cat.IsWildlife() && ch.Size > 0.05 && ch.Size < 0.6 {
		bonus += 0.05
	}
	return clamp01(base + bonus)
}

// timeOfDayFactor weights interest by hour. Crepuscular hours score
// highest, midday lowest.
func timeOfDayFactor(hour int) float64 {
	switch {
	case hour >= 5 && hour <= 8:
		return 1.2
	case hour >= 17 && hour <= 20:
		return 1.2
	case hour >= 11 && hour <= 14:
		return 0.8
	default:
		return 1.0
	}
}
