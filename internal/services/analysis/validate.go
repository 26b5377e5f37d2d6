package analysis

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bobmcallan/chartsage/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// signalAliases maps the vocabulary the model sometimes answers in.
var signalAliases = map[string]models.Signal{
	"BUY":    models.SignalBuy,
	"SELL":   models.SignalSell,
	"COMPRA": models.SignalBuy,
	"VENDA":  models.SignalSell,
}

// decodeSignal turns an untrusted model map into a validated ChartSignal.
// Missing or out-of-enum fields wrap models.ErrMalformedResponse.
func decodeSignal(raw map[string]any, defaultMarket string) (models.ChartSignal, error) {
	if raw == nil {
		return models.ChartSignal{}, fmt.Errorf("%w: empty answer", models.ErrMalformedResponse)
	}

	signal := strings.ToUpper(stringField(raw, "signal"))
	if alias, ok := signalAliases[signal]; ok {
		signal = string(alias)
	}

	sig := models.ChartSignal{
		Signal:  models.Signal(signal),
		Entry:   stringField(raw, "entry"),
		Market:  stringField(raw, "market"),
		Warning: stringField(raw, "warning"),
	}
	if sig.Market == "" {
		sig.Market = defaultMarket
	}

	if err := validate.Struct(sig); err != nil {
		return models.ChartSignal{}, fmt.Errorf("%w: %s", models.ErrMalformedResponse, describeValidation(err))
	}
	return sig, nil
}

// stringField returns raw[key] trimmed when it is a string, else "".
func stringField(raw map[string]any, key string) string {
	s, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is missing")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s %q is not one of %s", field, fe.Value(), fe.Param()))
		default:
			parts = append(parts, field+" failed "+fe.Tag())
		}
	}
	return strings.Join(parts, "; ")
}
