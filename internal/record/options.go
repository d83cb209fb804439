package record

// Option catalogs offered by the API for building record forms. Values are
// stored verbatim, so they must not be renamed once records exist.
var (
	ServerOptions = []string{"Premium", "Zona", "Otro (Nota)"}

	PaymentMethodOptions = []string{"PayPal", "Remitly", "Ria", "W.U.", "Bancolombia", "Otro(nota)"}

	DeviceOptions = []string{"AndroidTV", "Samsung", "LG", "FireTV", "RokuTV", "iOS", "Android"}
)

// Options bundles the catalogs for JSON responses.
type Options struct {
	Servers        []string `json:"servers"`
	PaymentMethods []string `json:"payment_methods"`
	Devices        []string `json:"devices"`
}

// AllOptions returns copies of the catalogs.
func AllOptions() Options {
	return Options{
		Servers:        append([]string(nil), ServerOptions...),
		PaymentMethods: append([]string(nil), PaymentMethodOptions...),
		Devices:        append([]string(nil), DeviceOptions...),
	}
}
