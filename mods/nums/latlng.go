package nums

import (
	"encoding/json"
	"fmt"
	"math"
)

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func NewLatLng(lat, lng float64) LatLng {
	return LatLng{Lat: lat, Lng: lng}
}

func (ll LatLng) String() string {
	return fmt.Sprintf("[%v,%v]", ll.Lat, ll.Lng)
}

func (ll LatLng) Array() []float64 {
	return []float64{ll.Lat, ll.Lng}
}

func (ll LatLng) IsValid() bool {
	return !math.IsNaN(ll.Lat) && !math.IsNaN(ll.Lng) &&
		!math.IsInf(ll.Lat, 0) && !math.IsInf(ll.Lng, 0)
}

func (ll LatLng) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{ll.Lat, ll.Lng})
}

// UnmarshalJSON accepts both [lat,lng] and {"lat":..,"lng":..}.
func (ll *LatLng) UnmarshalJSON(b []byte) error {
	var arr []float64
	if err := json.Unmarshal(b, &arr); err == nil {
		if len(arr) != 2 {
			return fmt.Errorf("invalid latlng %s", string(b))
		}
		ll.Lat, ll.Lng = arr[0], arr[1]
		return nil
	}
	var obj struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Lat == nil || (obj.Lng == nil && obj.Lon == nil) {
		return fmt.Errorf("invalid latlng %s", string(b))
	}
	ll.Lat = *obj.Lat
	if obj.Lng != nil {
		ll.Lng = *obj.Lng
	} else {
		ll.Lng = *obj.Lon
	}
	return nil
}

// LatLngBounds is a geographic rectangle.
type LatLngBounds struct {
	SouthWest LatLng `json:"southWest"`
	NorthEast LatLng `json:"northEast"`
	empty     bool
}

func NewLatLngBounds(corners ...LatLng) *LatLngBounds {
	ret := &LatLngBounds{empty: true}
	for _, c := range corners {
		ret.Extend(c)
	}
	return ret
}

func (b *LatLngBounds) IsEmpty() bool {
	return b == nil || b.empty
}

func (b *LatLngBounds) Extend(ll LatLng) *LatLngBounds {
	if b.empty {
		b.SouthWest, b.NorthEast = ll, ll
		b.empty = false
		return b
	}
	b.SouthWest.Lat = math.Min(b.SouthWest.Lat, ll.Lat)
	b.SouthWest.Lng = math.Min(b.SouthWest.Lng, ll.Lng)
	b.NorthEast.Lat = math.Max(b.NorthEast.Lat, ll.Lat)
	b.NorthEast.Lng = math.Max(b.NorthEast.Lng, ll.Lng)
	return b
}

func (b *LatLngBounds) Contains(ll LatLng) bool {
	if b.IsEmpty() {
		return false
	}
	return ll.Lat >= b.SouthWest.Lat && ll.Lat <= b.NorthEast.Lat &&
		ll.Lng >= b.SouthWest.Lng && ll.Lng <= b.NorthEast.Lng
}

func (b *LatLngBounds) Center() LatLng {
	return LatLng{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
	}
}

func (b *LatLngBounds) String() string {
	return fmt.Sprintf("[%s,%s]", b.SouthWest.String(), b.NorthEast.String())
}
