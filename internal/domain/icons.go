package domain

import (
	"encoding/json"
	"strings"
)

// Icon is a symbolic icon identifier understood by the client.
// The set is closed; anything outside it resolves to IconUnknown.
type Icon string

const (
	IconUtensils    Icon = "Utensils"
	IconCar         Icon = "Car"
	IconCoffee      Icon = "Coffee"
	IconShoppingBag Icon = "ShoppingBag"
	IconFilm        Icon = "Film"
	IconHeart       Icon = "Heart"
	IconHome        Icon = "Home"
	IconZap         Icon = "Zap"
	IconBanknote    Icon = "Banknote"
	IconGift        Icon = "Gift"
	IconTrendingUp  Icon = "TrendingUp"
	IconPlus        Icon = "Plus"
	IconPhone       Icon = "Phone"
	IconWifi        Icon = "Wifi"
	IconBook        Icon = "Book"
	IconMusic       Icon = "Music"
	IconPlane       Icon = "Plane"
	IconTrain       Icon = "Train"
	IconBus         Icon = "Bus"
	IconBike        Icon = "Bike"
	IconShirt       Icon = "Shirt"
	IconWatch       Icon = "Watch"
	IconHeadphones  Icon = "Headphones"
	IconMonitor     Icon = "Monitor"
	IconSmartphone  Icon = "Smartphone"
	IconGamepad     Icon = "Gamepad"
	IconCamera      Icon = "Camera"
	IconTv          Icon = "Tv"
	IconSpeaker     Icon = "Speaker"
	IconLaptop      Icon = "Laptop"
	IconTablet      Icon = "Tablet"

	// IconUnknown is the fallback for unrecognized names.
	IconUnknown Icon = "HelpCircle"
)

// knownIcons is ordered; the prompt lists icons in this order.
var knownIcons = []Icon{
	IconUtensils, IconCar, IconCoffee, IconShoppingBag, IconFilm, IconHeart,
	IconHome, IconZap, IconBanknote, IconGift, IconTrendingUp, IconPlus,
	IconUnknown, IconPhone, IconWifi, IconBook, IconMusic, IconPlane,
	IconTrain, IconBus, IconBike, IconShirt, IconWatch, IconHeadphones,
	IconMonitor, IconSmartphone, IconGamepad, IconCamera, IconTv,
	IconSpeaker, IconLaptop, IconTablet,
}

var iconsByKey = func() map[string]Icon {
	m := make(map[string]Icon, len(knownIcons))
	for _, ic := range knownIcons {
		m[strings.ToLower(string(ic))] = ic
	}
	return m
}()

// ParseIcon resolves a name case-insensitively. Unknown or empty names give IconUnknown.
func ParseIcon(name string) Icon {
	if ic, ok := iconsByKey[strings.ToLower(strings.TrimSpace(name))]; ok {
		return ic
	}
	return IconUnknown
}

// KnownIcons returns the icon vocabulary.
func KnownIcons() []Icon {
	out := make([]Icon, len(knownIcons))
	copy(out, knownIcons)
	return out
}

// UnmarshalJSON normalizes the icon so an unknown value never reaches the client.
func (i *Icon) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*i = ParseIcon(s)
	return nil
}
