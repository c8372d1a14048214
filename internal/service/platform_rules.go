package service

// PlatformRules describes the structural media constraints for one
// platform. Adding a platform is a table entry, not new code.
type PlatformRules struct {
	MaxImages         int
	MaxVideos         int
	MaxItems          int // combined ceiling, used when AllowMixedMedia
	AllowMixedMedia   bool
	SupportsCarousel  bool
	SupportsThreading bool
}

var platformRules = map[string]PlatformRules{
	"instagram": {MaxImages: 10, MaxVideos: 10, MaxItems: 10, AllowMixedMedia: true, SupportsCarousel: true},
	"facebook":  {MaxImages: 10, MaxVideos: 1, MaxItems: 10, AllowMixedMedia: true, SupportsCarousel: true},
	"x":         {MaxImages: 4, MaxVideos: 1, SupportsCarousel: true, SupportsThreading: true},
	"threads":   {MaxImages: 20, MaxVideos: 20, MaxItems: 20, AllowMixedMedia: true, SupportsCarousel: true, SupportsThreading: true},
	"tiktok":    {MaxImages: 35, MaxVideos: 1, SupportsCarousel: true},
	"youtube":   {MaxImages: 0, MaxVideos: 1},
	"linkedin":  {MaxImages: 9, MaxVideos: 1, SupportsCarousel: true},
	"pinterest": {MaxImages: 5, MaxVideos: 1, SupportsCarousel: true},
}

// RulesFor returns the rule entry for a platform. Unknown platforms get
// the most restrictive single-item rules.
func RulesFor(platform string) PlatformRules {
	if r, ok := platformRules[platform]; ok {
		return r
	}
	return PlatformRules{MaxImages: 1, MaxVideos: 1}
}

// CanAdd reports whether one more item of mediaType fits next to the
// given selected counts.
func (r PlatformRules) CanAdd(images, videos int, mediaType string) bool {
	if r.AllowMixedMedia {
		return images+videos < r.MaxItems
	}
	switch mediaType {
	case "video":
		return images == 0 && videos < r.MaxVideos
	default:
		return videos == 0 && images < r.MaxImages
	}
}

// ShowOrderingUI reports whether carousel ordering chrome (numbered
// badges, the cover label on position 0) should be rendered.
func ShowOrderingUI(platform string, selectedCount int) bool {
	return RulesFor(platform).SupportsCarousel && selectedCount > 1
}

// ThreadingPlatforms lists the platforms that allow chains longer than
// one segment.
func ThreadingPlatforms() []string {
	var out []string
	for p, r := range platformRules {
		if r.SupportsThreading {
			out = append(out, p)
		}
	}
	return out
}
