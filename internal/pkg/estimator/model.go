package estimator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// 模型文件中的特征名
const (
	FeatureSolarTemp          = "solar_temp"
	FeatureWastewaterQuantity = "wastewater_quantity"
)

var ErrInvalidOutput = errors.New("model produced a non-finite value")

// Features 一次预测的传感器输入
type Features struct {
	SolarTemp          float64
	WastewaterQuantity float64
}

// Model 根据传感器读数预测每分钟发电量
type Model interface {
	Predict(f Features) (float64, error)
}

// LinearModel 预先训练好的线性回归，JSON 格式:
//
//	{"intercept": 0.35, "coefficients": {"solar_temp": 0.042, "wastewater_quantity": 0.0065}}
type LinearModel struct {
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// Load 从磁盘读取模型文件
func Load(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}

	for _, name := range []string{FeatureSolarTemp, FeatureWastewaterQuantity} {
		if _, ok := m.Coefficients[name]; !ok {
			return nil, fmt.Errorf("model is missing coefficient %q", name)
		}
	}

	return &m, nil
}

func (m *LinearModel) Predict(f Features) (float64, error) {
	y := m.Intercept +
		m.Coefficients[FeatureSolarTemp]*f.SolarTemp +
		m.Coefficients[FeatureWastewaterQuantity]*f.WastewaterQuantity

	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, ErrInvalidOutput
	}
	return y, nil
}
