package upstream

import "time"

// Category names the upstream collection a record was read from.
type Category string

const (
	CategoryBR          Category = "br"
	CategoryTracks      Category = "tracks"
	CategoryInstruments Category = "instruments"
	CategoryCars        Category = "cars"
	CategoryLego        Category = "lego"
	CategoryLegoKits    Category = "legoKits"
	CategoryBeans       Category = "beans"
)

// Record is one raw catalog entry. The concrete type tells which category it
// came from; callers type-switch on it.
type Record interface {
	RecordID() string
	Category() Category
}

// Attribute mirrors upstream {value, displayValue, backendValue} objects.
type Attribute struct {
	Value        string `json:"value"`
	DisplayValue string `json:"displayValue"`
	BackendValue string `json:"backendValue,omitempty"`
}

// Empty reports whether the attribute carries no value.
func (a *Attribute) Empty() bool {
	return a == nil || a.Value == ""
}

// Series mirrors the upstream series object.
type Series struct {
	Value        string   `json:"value"`
	Image        string   `json:"image,omitempty"`
	Colors       []string `json:"colors,omitempty"`
	BackendValue string   `json:"backendValue,omitempty"`
}

// BRImages is the image set of battle royale items.
type BRImages struct {
	SmallIcon string `json:"smallIcon"`
	Icon      string `json:"icon"`
	Featured  string `json:"featured"`
}

// SizedImages is the small/large(/wide) image set of the newer categories.
type SizedImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
	Wide  string `json:"wide,omitempty"`
}

// BRItem is a battle royale cosmetic (outfits, pickaxes, emotes, ...).
type BRItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        *Attribute `json:"type"`
	Rarity      *Attribute `json:"rarity"`
	Series      *Series    `json:"series"`
	Images      BRImages   `json:"images"`
	Added       *time.Time `json:"added"`
}

func (r BRItem) RecordID() string   { return r.ID }
func (r BRItem) Category() Category { return CategoryBR }

// Track is a jam track. It has no type or rarity upstream.
type Track struct {
	ID          string     `json:"id"`
	DevName     string     `json:"devName"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Album       string     `json:"album,omitempty"`
	ReleaseYear int        `json:"releaseYear,omitempty"`
	AlbumArt    string     `json:"albumArt"`
	Added       *time.Time `json:"added"`
}

func (r Track) RecordID() string   { return r.ID }
func (r Track) Category() Category { return CategoryTracks }

// Instrument is a festival instrument.
type Instrument struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        *Attribute  `json:"type"`
	Rarity      *Attribute  `json:"rarity"`
	Series      *Series     `json:"series"`
	Images      SizedImages `json:"images"`
	Added       *time.Time  `json:"added"`
}

func (r Instrument) RecordID() string   { return r.ID }
func (r Instrument) Category() Category { return CategoryInstruments }

// Car is a vehicle cosmetic.
type Car struct {
	ID          string      `json:"id"`
	VehicleID   string      `json:"vehicleId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        *Attribute  `json:"type"`
	Rarity      *Attribute  `json:"rarity"`
	Series      *Series     `json:"series"`
	Images      SizedImages `json:"images"`
	Added       *time.Time  `json:"added"`
}

func (r Car) RecordID() string   { return r.ID }
func (r Car) Category() Category { return CategoryCars }

// Lego is a LEGO style for an existing cosmetic. It has no name upstream.
type Lego struct {
	ID         string      `json:"id"`
	CosmeticID string      `json:"cosmeticId"`
	Images     SizedImages `json:"images"`
	Added      *time.Time  `json:"added"`
}

func (r Lego) RecordID() string   { return r.ID }
func (r Lego) Category() Category { return CategoryLego }

// LegoKit is a LEGO building kit.
type LegoKit struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Type   *Attribute  `json:"type"`
	Series *Series     `json:"series"`
	Images SizedImages `json:"images"`
	Added  *time.Time  `json:"added"`
}

func (r LegoKit) RecordID() string   { return r.ID }
func (r LegoKit) Category() Category { return CategoryLegoKits }

// Bean is a Fall Guys style bean costume.
type Bean struct {
	ID         string      `json:"id"`
	CosmeticID string      `json:"cosmeticId"`
	Name       string      `json:"name"`
	Gender     string      `json:"gender"`
	Images     SizedImages `json:"images"`
	Added      *time.Time  `json:"added"`
}

func (r Bean) RecordID() string   { return r.ID }
func (r Bean) Category() Category { return CategoryBeans }

// CategorySet groups records by upstream category, as returned by the catalog
// and new-items endpoints.
type CategorySet struct {
	BR          []BRItem     `json:"br"`
	Tracks      []Track      `json:"tracks"`
	Instruments []Instrument `json:"instruments"`
	Cars        []Car        `json:"cars"`
	Lego        []Lego       `json:"lego"`
	LegoKits    []LegoKit    `json:"legoKits"`
	Beans       []Bean       `json:"beans"`
}

// Records flattens the set in category order.
func (s *CategorySet) Records() []Record {
	if s == nil {
		return nil
	}
	out := make([]Record, 0, s.Len())
	for _, r := range s.BR {
		out = append(out, r)
	}
	for _, r := range s.Tracks {
		out = append(out, r)
	}
	for _, r := range s.Instruments {
		out = append(out, r)
	}
	for _, r := range s.Cars {
		out = append(out, r)
	}
	for _, r := range s.Lego {
		out = append(out, r)
	}
	for _, r := range s.LegoKits {
		out = append(out, r)
	}
	for _, r := range s.Beans {
		out = append(out, r)
	}
	return out
}

// Len returns the total number of records across categories.
func (s *CategorySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.BR) + len(s.Tracks) + len(s.Instruments) + len(s.Cars) +
		len(s.Lego) + len(s.LegoKits) + len(s.Beans)
}

// NewItems is the payload of the new-items endpoint.
type NewItems struct {
	Build string      `json:"build,omitempty"`
	Date  *time.Time  `json:"date,omitempty"`
	Items CategorySet `json:"items"`
}

// BundleDescriptor marks a shop entry as a bundle offer.
type BundleDescriptor struct {
	Name  string `json:"name"`
	Info  string `json:"info"`
	Image string `json:"image"`
}

// DisplayAsset points at the cosmetic whose art represents a shop entry.
type DisplayAsset struct {
	ID         string `json:"id,omitempty"`
	CosmeticID string `json:"cosmeticId"`
}

// ShopEntry is one offer in the current shop rotation.
type ShopEntry struct {
	RegularPrice    int               `json:"regularPrice"`
	FinalPrice      int               `json:"finalPrice"`
	OfferID         string            `json:"offerId,omitempty"`
	DevName         string            `json:"devName"`
	InDate          *time.Time        `json:"inDate,omitempty"`
	OutDate         *time.Time        `json:"outDate,omitempty"`
	Bundle          *BundleDescriptor `json:"bundle"`
	NewDisplayAsset *DisplayAsset     `json:"newDisplayAsset"`
	BRItems         []BRItem          `json:"brItems"`
	Tracks          []Track           `json:"tracks"`
	Instruments     []Instrument      `json:"instruments"`
	Cars            []Car             `json:"cars"`
	LegoKits        []LegoKit         `json:"legoKits"`
}

// Records returns the entry's listed items in listing order.
func (e *ShopEntry) Records() []Record {
	out := make([]Record, 0, len(e.BRItems)+len(e.Tracks)+len(e.Instruments)+len(e.Cars)+len(e.LegoKits))
	for _, r := range e.BRItems {
		out = append(out, r)
	}
	for _, r := range e.Tracks {
		out = append(out, r)
	}
	for _, r := range e.Instruments {
		out = append(out, r)
	}
	for _, r := range e.Cars {
		out = append(out, r)
	}
	for _, r := range e.LegoKits {
		out = append(out, r)
	}
	return out
}

// DisplayCosmeticID returns the display-asset cosmetic id, if any.
func (e *ShopEntry) DisplayCosmeticID() string {
	if e.NewDisplayAsset == nil {
		return ""
	}
	return e.NewDisplayAsset.CosmeticID
}

// Shop is the payload of the shop endpoint.
type Shop struct {
	Hash    string      `json:"hash,omitempty"`
	Date    *time.Time  `json:"date,omitempty"`
	Entries []ShopEntry `json:"entries"`
}

// News is the message-of-the-day feed for each game mode. Modes without
// current news are nil.
type News struct {
	BR       *NewsMode `json:"br,omitempty"`
	STW      *NewsMode `json:"stw,omitempty"`
	Creative *NewsMode `json:"creative,omitempty"`
}

// NewsMode is the news of one game mode.
type NewsMode struct {
	Hash     string        `json:"hash,omitempty"`
	Date     *time.Time    `json:"date,omitempty"`
	Image    string        `json:"image,omitempty"`
	MOTDs    []MOTD        `json:"motds,omitempty"`
	Messages []NewsMessage `json:"messages,omitempty"`
}

// MOTD is a message-of-the-day tile.
type MOTD struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	TabTitle        string `json:"tabTitle"`
	Body            string `json:"body"`
	Image           string `json:"image,omitempty"`
	TileImage       string `json:"tileImage,omitempty"`
	SortingPriority int    `json:"sortingPriority"`
	Hidden          bool   `json:"hidden"`
	WebsiteURL      string `json:"websiteUrl,omitempty"`
	VideoString     string `json:"videoString,omitempty"`
	VideoID         string `json:"videoId,omitempty"`
}

// NewsMessage is a plain news message.
type NewsMessage struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Image   string `json:"image,omitempty"`
	Adspace string `json:"adspace,omitempty"`
}
