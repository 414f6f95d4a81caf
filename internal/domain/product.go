package domain

// Product is an entry of the read-only catalog.
type Product struct {
	ID       int
	Name     string
	Category string
	Price    float64
	InStock  bool
}
