// Package geo 提供地理距離計算與半徑篩選。
package geo

import "math"

// EarthRadiusKm 地球平均半徑（公里）
const EarthRadiusKm = 6371.0

// Point 是一組經緯度座標
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location 是可選的地點資訊，經緯度可能缺漏
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// NewLocation 建立一個完整座標的 Location
func NewLocation(lat, lng float64, address string) *Location {
	return &Location{Latitude: &lat, Longitude: &lng, Address: address}
}

// Point 回傳座標；任一經緯度缺漏時 ok 為 false
func (l *Location) Point() (p Point, ok bool) {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return Point{}, false
	}
	return Point{Latitude: *l.Latitude, Longitude: *l.Longitude}, true
}

// Valid 檢查經緯度是否在合法範圍內；缺漏的欄位不視為錯誤
func (l *Location) Valid() bool {
	if l == nil {
		return true
	}
	if l.Latitude != nil && (math.IsNaN(*l.Latitude) || *l.Latitude < -90 || *l.Latitude > 90) {
		return false
	}
	if l.Longitude != nil && (math.IsNaN(*l.Longitude) || *l.Longitude < -180 || *l.Longitude > 180) {
		return false
	}
	return true
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm 以 haversine 公式計算兩點間的大圓距離（公里）
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dLon/2), 2)

	return EarthRadiusKm * (2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a)))
}

// WithinRadius 判斷 loc 是否位於 center 的 maxDistanceKm 範圍內
// 沒有完整座標的地點一律不符合；NaN 比較結果自然為 false
func WithinRadius(loc *Location, center Point, maxDistanceKm float64) bool {
	p, ok := loc.Point()
	if !ok {
		return false
	}
	return DistanceKm(center.Latitude, center.Longitude, p.Latitude, p.Longitude) <= maxDistanceKm
}

// Filter 保留位於半徑內的項目
func Filter[T any](items []T, locate func(T) *Location, center Point, maxDistanceKm float64) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if WithinRadius(locate(item), center, maxDistanceKm) {
			out = append(out, item)
		}
	}
	return out
}
