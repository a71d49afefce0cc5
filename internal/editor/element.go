package editor

// ElementType discriminates what a timeline element renders and plays.
type ElementType string

const (
	ElementText  ElementType = "text"
	ElementImage ElementType = "image"
	ElementVideo ElementType = "video"
	ElementAudio ElementType = "audio"
)

// TimeFrame is the window on the project timeline, in milliseconds, during
// which an element is visible and audible. Invariant: 0 <= Start <= End <=
// project max time, maintained by the store on every write.
type TimeFrame struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Contains reports whether the given timeline position falls inside the
// window. Both edges are inclusive.
func (tf TimeFrame) Contains(ms float64) bool {
	return ms >= float64(tf.Start) && ms <= float64(tf.End)
}

// Placement positions an element on the canvas. Width and Height
// are the content size; ScaleX and ScaleY multiply it; Rotation is degrees
// around the center. Audio elements carry a zero placement.
type Placement struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Rotation float64 `yaml:"rotation"`
	ScaleX   float64 `yaml:"scaleX"`
	ScaleY   float64 `yaml:"scaleY"`
}

// DefaultPlacement returns a neutral placement with unit scale.
func DefaultPlacement() Placement {
	return Placement{ScaleX: 1, ScaleY: 1}
}

// EffectType names a pixel filter applied to image and video content.
type EffectType string

const (
	EffectNone          EffectType = "none"
	EffectBlackAndWhite EffectType = "blackAndWhite"
	EffectSepia         EffectType = "sepia"
	EffectInvert        EffectType = "invert"
	EffectSaturate      EffectType = "saturate"
)

type Effect struct {
	Type EffectType `yaml:"type"`
}

// TextProps is the payload of a text element. SplitTexts holds the staged
// reveal segments produced by a text break animation; their concatenation
// always equals Text.
type TextProps struct {
	Text       string   `yaml:"text"`
	FontSize   float64  `yaml:"fontSize"`
	FontWeight int      `yaml:"fontWeight"`
	SplitTexts []string `yaml:"splitTexts,omitempty"`
}

// MediaProps is the payload of image and video elements. ResourceID refers
// to the project resource pool; Src is the resolved file location.
type MediaProps struct {
	ResourceID string `yaml:"resourceId"`
	Src        string `yaml:"src"`
	Effect     Effect `yaml:"effect"`
}

// AudioProps is the payload of audio elements.
type AudioProps struct {
	ResourceID string `yaml:"resourceId"`
	Src        string `yaml:"src"`
}

// Props is a tagged union: exactly one member is set, matching the element
// type.
type Props struct {
	Text  *TextProps  `yaml:"text,omitempty"`
	Media *MediaProps `yaml:"media,omitempty"`
	Audio *AudioProps `yaml:"audio,omitempty"`
}

// Element is one entry on the editing timeline.
type Element struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	Type      ElementType `yaml:"type"`
	TimeFrame TimeFrame   `yaml:"timeFrame"`
	Placement Placement   `yaml:"placement"`
	Props     Props       `yaml:"props"`
}

// Resource is one entry in a project media pool.
type Resource struct {
	ID  string `yaml:"id"`
	Src string `yaml:"src"`
}

// AnimationType names a prebuilt animation recipe.
type AnimationType string

const (
	AnimationFadeIn    AnimationType = "fadeIn"
	AnimationFadeOut   AnimationType = "fadeOut"
	AnimationSlideIn   AnimationType = "slideIn"
	AnimationSlideOut  AnimationType = "slideOut"
	AnimationBreakText AnimationType = "breakText"
)

// Slide directions and text break modes.
const (
	DirectionLeft   = "left"
	DirectionRight  = "right"
	DirectionTop    = "top"
	DirectionBottom = "bottom"

	TextModeCharacter = "character"
	TextModeWord      = "word"
)

// AnimationProps carries per-recipe options. Direction applies to slides,
// UseClipPath switches slides from movement to a clip reveal, TextMode
// picks the text break granularity.
type AnimationProps struct {
	Direction   string `yaml:"direction,omitempty"`
	UseClipPath bool   `yaml:"useClipPath,omitempty"`
	TextMode    string `yaml:"textMode,omitempty"`
}

// Animation binds a recipe to one target element. Duration is in
// milliseconds; the start anchor derives from the target's time frame
// (entrances anchor at Start, exits end at End).
type Animation struct {
	ID       string         `yaml:"id"`
	TargetID string         `yaml:"targetId"`
	Type     AnimationType  `yaml:"type"`
	Duration float64        `yaml:"duration"`
	Props    AnimationProps `yaml:"props,omitempty"`
}
