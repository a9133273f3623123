package estimator

import (
	"math/rand/v2"
	"sync"
)

// Range 模拟读数的闭区间
type Range struct {
	Min float64
	Max float64
}

// Sensor 每次调用产生一组读数
type Sensor interface {
	Read() Features
}

// RandomSensor 在区间内均匀取值
type RandomSensor struct {
	mu         sync.Mutex
	rng        *rand.Rand
	solarTemp  Range
	wastewater Range
}

// NewRandomSensor rng 为 nil 时使用运行时随机源
func NewRandomSensor(solarTemp, wastewater Range, rng *rand.Rand) *RandomSensor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomSensor{
		rng:        rng,
		solarTemp:  solarTemp,
		wastewater: wastewater,
	}
}

func (s *RandomSensor) Read() Features {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Features{
		SolarTemp:          s.uniform(s.solarTemp),
		WastewaterQuantity: s.uniform(s.wastewater),
	}
}

func (s *RandomSensor) uniform(r Range) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + s.rng.Float64()*(r.Max-r.Min)
}

// FixedSensor 固定读数
type FixedSensor Features

func (s FixedSensor) Read() Features {
	return Features(s)
}
