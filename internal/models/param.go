package models

// RunParam is a single key/value run parameter.
type RunParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Param returns a RunParam for an explicit key/value pair.
func Param(key, value string) RunParam {
	return RunParam{Key: key, Value: value}
}

// NewRunParam builds a RunParam from a decoded param object.
func NewRunParam(m map[string]any) (RunParam, error) {
	rawKey, err := required(m, "key")
	if err != nil {
		return RunParam{}, err
	}
	rawValue, err := required(m, "value")
	if err != nil {
		return RunParam{}, err
	}

	key, err := toString("key", rawKey)
	if err != nil {
		return RunParam{}, err
	}
	value, err := toString("value", rawValue)
	if err != nil {
		return RunParam{}, err
	}

	return Param(key, value), nil
}
