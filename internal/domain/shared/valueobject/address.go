package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a value object representing a shipping address.
// It is immutable - all operations return new Address instances.
type Address struct {
	line1      string
	line2      string
	city       string
	state      string
	postalCode string
	country    string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithLine2 sets the secondary address line (suite, unit, floor)
func WithLine2(line2 string) AddressOption {
	return func(a *Address) {
		a.line2 = strings.TrimSpace(line2)
	}
}

// WithCountry sets the ISO country code for the address
func WithCountry(country string) AddressOption {
	return func(a *Address) {
		a.country = strings.ToUpper(strings.TrimSpace(country))
	}
}

// NewAddress creates a new Address with the required fields.
// Line1, city, state and postal code are required; line2 is optional.
func NewAddress(line1, city, state, postalCode string, opts ...AddressOption) (Address, error) {
	line1 = strings.TrimSpace(line1)
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	postalCode = strings.TrimSpace(postalCode)

	if err := validateLine1(line1); err != nil {
		return Address{}, err
	}
	if err := validateCity(city); err != nil {
		return Address{}, err
	}
	if err := validateState(state); err != nil {
		return Address{}, err
	}
	if err := validatePostalCode(postalCode); err != nil {
		return Address{}, err
	}

	addr := Address{
		line1:      line1,
		city:       city,
		state:      state,
		postalCode: postalCode,
		country:    "US",
	}

	for _, opt := range opts {
		opt(&addr)
	}

	if addr.country != "" && len(addr.country) > 2 {
		return Address{}, fmt.Errorf("country must be a 2-letter ISO code")
	}

	return addr, nil
}

// MustNewAddress creates a new Address, panics on error
func MustNewAddress(line1, city, state, postalCode string, opts ...AddressOption) Address {
	addr, err := NewAddress(line1, city, state, postalCode, opts...)
	if err != nil {
		panic(err)
	}
	return addr
}

// EmptyAddress returns an empty address (for optional address fields)
func EmptyAddress() Address {
	return Address{}
}

// Line1 returns the primary street line
func (a Address) Line1() string {
	return a.line1
}

// Line2 returns the secondary street line
func (a Address) Line2() string {
	return a.line2
}

// City returns the city
func (a Address) City() string {
	return a.city
}

// State returns the state or region code
func (a Address) State() string {
	return a.state
}

// PostalCode returns the postal code
func (a Address) PostalCode() string {
	return a.postalCode
}

// ZipPrefix returns the first three digits of a US ZIP code, or an
// empty string when the postal code does not start with three digits.
// Delivery estimation uses the prefix as a coarse distance proxy.
func (a Address) ZipPrefix() string {
	if len(a.postalCode) < 3 {
		return ""
	}
	prefix := a.postalCode[:3]
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return prefix
}

// Country returns the ISO country code
func (a Address) Country() string {
	return a.country
}

// IsEmpty returns true if the address has no content
func (a Address) IsEmpty() bool {
	return a.line1 == "" && a.city == "" && a.state == "" && a.postalCode == ""
}

// Format returns the address as a single shipping-label style line
func (a Address) Format() string {
	if a.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, 6)
	if a.line1 != "" {
		parts = append(parts, a.line1)
	}
	if a.line2 != "" {
		parts = append(parts, a.line2)
	}
	if a.city != "" {
		parts = append(parts, a.city)
	}
	if a.state != "" && a.postalCode != "" {
		parts = append(parts, a.state+" "+a.postalCode)
	} else if a.state != "" {
		parts = append(parts, a.state)
	} else if a.postalCode != "" {
		parts = append(parts, a.postalCode)
	}
	if a.country != "" {
		parts = append(parts, a.country)
	}
	return strings.Join(parts, ", ")
}

// String returns a string representation of the address
func (a Address) String() string {
	return a.Format()
}

// Equals returns true if both addresses are equal
func (a Address) Equals(other Address) bool {
	return a.line1 == other.line1 &&
		a.line2 == other.line2 &&
		a.city == other.city &&
		a.state == other.state &&
		a.postalCode == other.postalCode &&
		a.country == other.country
}

// SameState returns true if both addresses are in the same state
func (a Address) SameState(other Address) bool {
	return a.country == other.country && a.state == other.state
}

// addressJSON is used for JSON marshaling/unmarshaling
type addressJSON struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{
		Line1:      a.line1,
		Line2:      a.line2,
		City:       a.city,
		State:      a.state,
		PostalCode: a.postalCode,
		Country:    a.country,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Empty payloads produce an empty
// address; non-empty payloads go through the validating factory.
func (a *Address) UnmarshalJSON(data []byte) error {
	var v addressJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	if v.Line1 == "" && v.City == "" && v.State == "" && v.PostalCode == "" {
		*a = EmptyAddress()
		return nil
	}

	addr, err := NewAddress(v.Line1, v.City, v.State, v.PostalCode,
		WithLine2(v.Line2), WithCountry(v.Country))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// AddressDTO carries address fields across layer boundaries and lets the
// address be stored as a JSON column.
type AddressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// ToDTO converts Address to AddressDTO
func (a Address) ToDTO() AddressDTO {
	return AddressDTO{
		Line1:      a.line1,
		Line2:      a.line2,
		City:       a.city,
		State:      a.state,
		PostalCode: a.postalCode,
		Country:    a.country,
	}
}

// ToAddress converts AddressDTO back to Address
func (dto AddressDTO) ToAddress() (Address, error) {
	if dto.Line1 == "" && dto.City == "" && dto.State == "" && dto.PostalCode == "" {
		return EmptyAddress(), nil
	}
	return NewAddress(dto.Line1, dto.City, dto.State, dto.PostalCode,
		WithLine2(dto.Line2), WithCountry(dto.Country))
}

// Value implements driver.Valuer for database storage as JSON
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for database retrieval
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = EmptyAddress()
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}

	if len(data) == 0 || string(data) == "null" {
		*a = EmptyAddress()
		return nil
	}

	return json.Unmarshal(data, a)
}

func validateLine1(line1 string) error {
	if line1 == "" {
		return fmt.Errorf("address line1 cannot be empty")
	}
	if len(line1) > 200 {
		return fmt.Errorf("address line1 cannot exceed 200 characters")
	}
	return nil
}

func validateCity(city string) error {
	if city == "" {
		return fmt.Errorf("city cannot be empty")
	}
	if len(city) > 100 {
		return fmt.Errorf("city cannot exceed 100 characters")
	}
	return nil
}

func validateState(state string) error {
	if state == "" {
		return fmt.Errorf("state cannot be empty")
	}
	if len(state) > 50 {
		return fmt.Errorf("state cannot exceed 50 characters")
	}
	return nil
}

func validatePostalCode(postalCode string) error {
	if postalCode == "" {
		return fmt.Errorf("postal code cannot be empty")
	}
	if len(postalCode) > 20 {
		return fmt.Errorf("postal code cannot exceed 20 characters")
	}
	return nil
}
