// Package editor holds the timeline state engine: elements, resources,
// selection, the playback clock, and the animation rebuild machinery. All
// mutations go through the Store, which keeps the canvas surface, the tween
// timeline, and registered media elements consistent with the entity data.
package editor

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivlev/cutroom/internal/canvas"
	"github.com/ivlev/cutroom/internal/config"
	"github.com/ivlev/cutroom/internal/media"
	"github.com/ivlev/cutroom/internal/tween"
)

var (
	ErrDuplicateID = errors.New("duplicate id")
	ErrNotFound    = errors.New("not found")
)

// Supported export containers.
const (
	FormatMP4  = "mp4"
	FormatWebM = "webm"
)

// Font weights at or above this render bold.
const boldWeight = 600

// Store is the single source of truth for one editing session. Every
// exported method takes the store lock, applies the mutation, and brings
// the dependent state (canvas objects, tween timeline, media playback)
// back in sync before returning.
type Store struct {
	mu       sync.Mutex
	logger   *zap.Logger
	surface  canvas.Surface
	timeline *tween.Timeline

	fps       int
	maxTimeMs int

	elements   []*Element
	objects    map[string]*canvas.Object
	animations []*Animation
	selected   *Element

	mediaEls   map[string]media.Element
	imageCache map[string]image.Image

	videos []Resource
	images []Resource
	audios []Resource

	backgroundColor    string
	videoFormat        string
	selectedMenuOption string

	playing         bool
	currentKeyFrame int
	startedTime     time.Time
	startedTimePlay float64
	now             func() time.Time
}

// NewStore creates a session bound to a canvas surface. The store
// subscribes to surface pointer events so clicking an object selects the
// matching element.
func NewStore(cfg *config.Config, surface canvas.Surface, logger *zap.Logger) *Store {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = 60
	}
	maxTime := cfg.MaxTimeMs
	if maxTime <= 0 {
		maxTime = 30000
	}
	format := cfg.Format
	if format == "" {
		format = FormatMP4
	}
	s := &Store{
		logger:          logger,
		surface:         surface,
		timeline:        tween.NewTimeline(),
		fps:             fps,
		maxTimeMs:       maxTime,
		objects:         make(map[string]*canvas.Object),
		mediaEls:        make(map[string]media.Element),
		imageCache:      make(map[string]image.Image),
		backgroundColor: cfg.Background,
		videoFormat:     format,
		now:             time.Now,
	}
	surface.OnMouseDown(s.handleMouseDown)
	return s
}

func (s *Store) Surface() canvas.Surface {
	return s.surface
}

// Elements returns a snapshot of the timeline entries in array order.
func (s *Store) Elements() []*Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// Element finds a timeline entry by id.
func (s *Store) Element(id string) (*Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.elementByID(id)
	return el, el != nil
}

// Object returns the canvas object backing an element. Audio elements have
// none.
func (s *Store) Object(id string) (*canvas.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	return obj, ok
}

// AddElement registers an element and creates its backing canvas object.
// The new element becomes the selection. An element with an id already in
// the store is rejected with ErrDuplicateID.
func (s *Store) AddElement(el *Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(el)
}

func (s *Store) add(el *Element) error {
	if el == nil {
		return errors.New("add element: nil element")
	}
	if el.ID == "" {
		el.ID = uuid.NewString()
	}
	if s.elementByID(el.ID) != nil {
		return fmt.Errorf("add element %s: %w", el.ID, ErrDuplicateID)
	}
	s.clampTimeFrame(&el.TimeFrame)
	s.elements = append(s.elements, el)
	if obj := s.buildObject(el); obj != nil {
		s.objects[el.ID] = obj
		s.surface.AddObject(obj)
	}
	s.setSelected(el)
	if s.animationTargets(el.ID) {
		// A registered animation may still target this id from a removed
		// element; rebuilding re-attaches it to the new object.
		s.rebuildAnimations()
	}
	s.updateTimeTo(s.currentTimeMs())
	s.logger.Debug("element added",
		zap.String("id", el.ID),
		zap.String("type", string(el.Type)))
	return nil
}

// AddText creates a text element sized to its rendered measure, centered on
// the canvas and spanning the whole timeline.
func (s *Store) AddText(text string, fontSize float64, fontWeight int) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, h := canvas.MeasureText(text, fontSize, fontWeight >= boldWeight)
	cw, ch := s.surface.Size()
	el := &Element{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Text %d", s.countType(ElementText)+1),
		Type:      ElementText,
		TimeFrame: TimeFrame{Start: 0, End: s.maxTimeMs},
		Placement: Placement{
			X: (float64(cw) - w) / 2, Y: (float64(ch) - h) / 2,
			Width: w, Height: h, ScaleX: 1, ScaleY: 1,
		},
		Props: Props{Text: &TextProps{Text: text, FontSize: fontSize, FontWeight: fontWeight}},
	}
	if err := s.add(el); err != nil {
		return nil, err
	}
	return el, nil
}

// AddImage creates an image element from a pool resource, fit to the canvas
// and centered.
func (s *Store) AddImage(resourceID string) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := findResource(s.images, resourceID)
	if !ok {
		return nil, fmt.Errorf("image resource %s: %w", resourceID, ErrNotFound)
	}
	img, err := s.loadImage(src)
	if err != nil {
		return nil, fmt.Errorf("image resource %s: %w", resourceID, err)
	}
	b := img.Bounds()
	cw, ch := s.surface.Size()
	el := &Element{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Image %d", s.countType(ElementImage)+1),
		Type:      ElementImage,
		TimeFrame: TimeFrame{Start: 0, End: s.maxTimeMs},
		Placement: fitPlacement(b.Dx(), b.Dy(), cw, ch),
		Props:     Props{Media: &MediaProps{ResourceID: resourceID, Src: src, Effect: Effect{Type: EffectNone}}},
	}
	if err := s.add(el); err != nil {
		return nil, err
	}
	return el, nil
}

// AddVideo creates a video element from a pool resource. Its time frame
// covers the media duration when a playback element is registered,
// otherwise the whole timeline.
func (s *Store) AddVideo(resourceID string) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := findResource(s.videos, resourceID)
	if !ok {
		return nil, fmt.Errorf("video resource %s: %w", resourceID, ErrNotFound)
	}
	cw, ch := s.surface.Size()
	placement := Placement{Width: float64(cw), Height: float64(ch), ScaleX: 1, ScaleY: 1}
	end := s.maxTimeMs
	if m := s.mediaEls[resourceID]; m != nil {
		if w, h := m.Size(); w > 0 && h > 0 {
			placement = fitPlacement(w, h, cw, ch)
		}
		end = mediaEndMs(m.Duration(), s.maxTimeMs)
	}
	el := &Element{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Video %d", s.countType(ElementVideo)+1),
		Type:      ElementVideo,
		TimeFrame: TimeFrame{Start: 0, End: end},
		Placement: placement,
		Props:     Props{Media: &MediaProps{ResourceID: resourceID, Src: src, Effect: Effect{Type: EffectNone}}},
	}
	if err := s.add(el); err != nil {
		return nil, err
	}
	return el, nil
}

// AddAudio creates an audio element from a pool resource. Audio has no
// canvas object and a zero placement.
func (s *Store) AddAudio(resourceID string) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := findResource(s.audios, resourceID)
	if !ok {
		return nil, fmt.Errorf("audio resource %s: %w", resourceID, ErrNotFound)
	}
	end := s.maxTimeMs
	if m := s.mediaEls[resourceID]; m != nil {
		end = mediaEndMs(m.Duration(), s.maxTimeMs)
	}
	el := &Element{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Audio %d", s.countType(ElementAudio)+1),
		Type:      ElementAudio,
		TimeFrame: TimeFrame{Start: 0, End: end},
		Props:     Props{Audio: &AudioProps{ResourceID: resourceID, Src: src}},
	}
	if err := s.add(el); err != nil {
		return nil, err
	}
	return el, nil
}

// UpdateElement replaces the stored element with the same id. The selection
// follows the replacement, and the backing object is re-synced.
func (s *Store) UpdateElement(el *Element) error {
	if el == nil {
		return errors.New("update element: nil element")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexByID(el.ID)
	if idx < 0 {
		return fmt.Errorf("update element %s: %w", el.ID, ErrNotFound)
	}
	s.clampTimeFrame(&el.TimeFrame)
	s.elements[idx] = el
	if s.selected != nil && s.selected.ID == el.ID {
		s.selected = el
	}
	if obj := s.objects[el.ID]; obj != nil {
		s.syncObject(el, obj)
	}
	// The replacement may point at a different resource.
	s.pauseOrphanedMedia()
	s.updateTimeTo(s.currentTimeMs())
	return nil
}

// RemoveElement evicts an element, its canvas object, and any tweens
// targeting it. Backing media pauses unless another element still
// references the resource. Animations that referenced the element stay
// registered but become inert until removed.
func (s *Store) RemoveElement(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexByID(id)
	if idx < 0 {
		return fmt.Errorf("remove element %s: %w", id, ErrNotFound)
	}
	if obj := s.objects[id]; obj != nil {
		s.surface.RemoveObject(obj)
		delete(s.objects, id)
	}
	s.elements = append(s.elements[:idx], s.elements[idx+1:]...)
	if s.selected != nil && s.selected.ID == id {
		s.setSelected(nil)
	}
	s.pauseOrphanedMedia()
	s.rebuildAnimations()
	return nil
}

// TimeFramePatch is a partial time frame update; nil fields keep the
// current value.
type TimeFramePatch struct {
	Start *int
	End   *int
}

// UpdateTimeFrame merges the patch into the element's window, clamps it to
// the timeline bounds, and refreshes animations anchored to it.
func (s *Store) UpdateTimeFrame(id string, patch TimeFramePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.elementByID(id)
	if el == nil {
		return fmt.Errorf("update time frame %s: %w", id, ErrNotFound)
	}
	tf := el.TimeFrame
	if patch.Start != nil {
		tf.Start = *patch.Start
	}
	if patch.End != nil {
		tf.End = *patch.End
	}
	s.clampTimeFrame(&tf)
	el.TimeFrame = tf
	s.rebuildAnimations()
	s.updateTimeTo(s.currentTimeMs())
	return nil
}

// clampTimeFrame enforces 0 <= Start <= End <= maxTime. When the merged
// window inverts, Start collapses onto End.
func (s *Store) clampTimeFrame(tf *TimeFrame) {
	if tf.Start < 0 {
		tf.Start = 0
	}
	if tf.End > s.maxTimeMs {
		tf.End = s.maxTimeMs
	}
	if tf.End < 0 {
		tf.End = 0
	}
	if tf.Start > tf.End {
		tf.Start = tf.End
	}
}

// SetElements replaces the whole timeline. Canvas objects are rebuilt, the
// selection re-resolves by id, animations re-anchor to the new instances,
// and media dropped from the timeline pauses.
func (s *Store) SetElements(list []*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obj := range s.objects {
		s.surface.RemoveObject(obj)
	}
	s.objects = make(map[string]*canvas.Object)
	s.elements = make([]*Element, 0, len(list))
	for _, el := range list {
		if el == nil {
			continue
		}
		s.clampTimeFrame(&el.TimeFrame)
		s.elements = append(s.elements, el)
		if obj := s.buildObject(el); obj != nil {
			s.objects[el.ID] = obj
			s.surface.AddObject(obj)
		}
	}
	if s.selected != nil {
		s.setSelected(s.elementByID(s.selected.ID))
	}
	s.pauseOrphanedMedia()
	s.rebuildAnimations()
	s.updateTimeTo(s.currentTimeMs())
}

// SetSelectedElement changes the selection and mirrors it onto the surface.
// Passing nil clears both.
func (s *Store) SetSelectedElement(el *Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSelected(el)
}

func (s *Store) SelectedElement() *Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *Store) setSelected(el *Element) {
	s.selected = el
	if el == nil {
		s.surface.DiscardActiveObject()
		return
	}
	if obj := s.objects[el.ID]; obj != nil {
		s.surface.SetActiveObject(obj)
	} else {
		s.surface.DiscardActiveObject()
	}
}

func (s *Store) handleMouseDown(target *canvas.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target == nil {
		s.setSelected(nil)
		return
	}
	for _, el := range s.elements {
		if s.objects[el.ID] == target {
			s.setSelected(el)
			return
		}
	}
	s.setSelected(nil)
}

// UpdateEffect swaps the pixel filter on an image or video element. Other
// element types ignore the call.
func (s *Store) UpdateEffect(id string, effect Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.elementByID(id)
	if el == nil {
		return fmt.Errorf("update effect %s: %w", id, ErrNotFound)
	}
	if el.Type != ElementImage && el.Type != ElementVideo {
		s.logger.Debug("effect ignored for element type",
			zap.String("id", id),
			zap.String("type", string(el.Type)))
		return nil
	}
	if el.Props.Media == nil {
		el.Props.Media = &MediaProps{}
	}
	el.Props.Media.Effect = effect
	if obj := s.objects[id]; obj != nil {
		obj.Filter = filterFor(effect.Type)
	}
	return nil
}

func filterFor(t EffectType) canvas.Filter {
	switch t {
	case EffectBlackAndWhite:
		return canvas.FilterGrayscale
	case EffectSepia:
		return canvas.FilterSepia
	case EffectInvert:
		return canvas.FilterInvert
	case EffectSaturate:
		return canvas.FilterSaturate
	default:
		return canvas.FilterNone
	}
}

// AddVideoResource registers a file in the video pool and returns its pool
// entry.
func (s *Store) AddVideoResource(src string) Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Resource{ID: uuid.NewString(), Src: src}
	s.videos = append(s.videos, r)
	return r
}

func (s *Store) AddImageResource(src string) Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Resource{ID: uuid.NewString(), Src: src}
	s.images = append(s.images, r)
	return r
}

func (s *Store) AddAudioResource(src string) Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Resource{ID: uuid.NewString(), Src: src}
	s.audios = append(s.audios, r)
	return r
}

// SetResourcePools replaces all three pools at once, preserving ids. Used
// when loading a project.
func (s *Store) SetResourcePools(videos, images, audios []Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos = append([]Resource(nil), videos...)
	s.images = append([]Resource(nil), images...)
	s.audios = append([]Resource(nil), audios...)
}

func (s *Store) VideoResources() []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Resource(nil), s.videos...)
}

func (s *Store) ImageResources() []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Resource(nil), s.images...)
}

func (s *Store) AudioResources() []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Resource(nil), s.audios...)
}

// RegisterMedia binds a playback element to a resource id. Video and audio
// elements referencing the resource sync their play state and position
// through it.
func (s *Store) RegisterMedia(resourceID string, m media.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaEls[resourceID] = m
}

func (s *Store) MediaElement(resourceID string) (media.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mediaEls[resourceID]
	return m, ok
}

// SetBackgroundColor validates and applies the canvas background.
func (s *Store) SetBackgroundColor(hex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.surface.SetBackground(hex); err != nil {
		return err
	}
	s.backgroundColor = hex
	return nil
}

func (s *Store) BackgroundColor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backgroundColor
}

// SetVideoFormat selects the export container.
func (s *Store) SetVideoFormat(format string) error {
	if format != FormatMP4 && format != FormatWebM {
		return fmt.Errorf("unknown video format %q", format)
	}
	s.mu.Lock()
	s.videoFormat = format
	s.mu.Unlock()
	return nil
}

func (s *Store) VideoFormat() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoFormat
}

func (s *Store) SetSelectedMenuOption(option string) {
	s.mu.Lock()
	s.selectedMenuOption = option
	s.mu.Unlock()
}

func (s *Store) SelectedMenuOption() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedMenuOption
}

func (s *Store) elementByID(id string) *Element {
	if idx := s.indexByID(id); idx >= 0 {
		return s.elements[idx]
	}
	return nil
}

func (s *Store) indexByID(id string) int {
	for i, el := range s.elements {
		if el.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) countType(t ElementType) int {
	n := 0
	for _, el := range s.elements {
		if el.Type == t {
			n++
		}
	}
	return n
}

func findResource(pool []Resource, id string) (string, bool) {
	for _, r := range pool {
		if r.ID == id {
			return r.Src, true
		}
	}
	return "", false
}

// buildObject creates the canvas object for an element. Audio elements
// return nil: they have no visual representation.
func (s *Store) buildObject(el *Element) *canvas.Object {
	var obj *canvas.Object
	switch el.Type {
	case ElementText:
		obj = canvas.NewObject(canvas.KindText)
		if tp := el.Props.Text; tp != nil {
			obj.Text = tp.Text
			obj.FontSize = tp.FontSize
			obj.FontBold = tp.FontWeight >= boldWeight
			obj.SplitTexts = tp.SplitTexts
			obj.Reveal = float64(len(tp.SplitTexts))
		}
	case ElementImage, ElementVideo:
		obj = canvas.NewObject(canvas.KindImage)
		if mp := el.Props.Media; mp != nil {
			obj.Filter = filterFor(mp.Effect.Type)
			if el.Type == ElementImage && mp.Src != "" {
				img, err := s.loadImage(mp.Src)
				if err != nil {
					s.logger.Debug("image load failed",
						zap.String("src", mp.Src),
						zap.Error(err))
				} else {
					obj.Image = img
				}
			}
		}
	default:
		return nil
	}
	obj.Name = el.ID
	applyPlacement(el, obj)
	obj.Visible = el.TimeFrame.Contains(s.currentTimeMs())
	return obj
}

// syncObject pushes element data onto its backing object. Visibility is
// owned by updateTimeTo and left alone here.
func (s *Store) syncObject(el *Element, obj *canvas.Object) {
	applyPlacement(el, obj)
	switch el.Type {
	case ElementText:
		if tp := el.Props.Text; tp != nil {
			obj.Text = tp.Text
			obj.FontSize = tp.FontSize
			obj.FontBold = tp.FontWeight >= boldWeight
			obj.SplitTexts = tp.SplitTexts
			obj.Reveal = float64(len(tp.SplitTexts))
		}
	case ElementImage, ElementVideo:
		if mp := el.Props.Media; mp != nil {
			obj.Filter = filterFor(mp.Effect.Type)
			if el.Type == ElementImage && obj.Image == nil && mp.Src != "" {
				if img, err := s.loadImage(mp.Src); err == nil {
					obj.Image = img
				}
			}
		}
	}
}

func applyPlacement(el *Element, obj *canvas.Object) {
	p := el.Placement
	obj.Left, obj.Top = p.X, p.Y
	obj.Width, obj.Height = p.Width, p.Height
	sx, sy := p.ScaleX, p.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	obj.ScaleX, obj.ScaleY = sx, sy
	obj.Angle = p.Rotation
}

// fitPlacement scales content to fit the canvas preserving aspect ratio and
// centers it.
func fitPlacement(w, h, canvasW, canvasH int) Placement {
	scale := 1.0
	if w > 0 && h > 0 {
		sx := float64(canvasW) / float64(w)
		sy := float64(canvasH) / float64(h)
		scale = sx
		if sy < sx {
			scale = sy
		}
	}
	return Placement{
		X:      (float64(canvasW) - float64(w)*scale) / 2,
		Y:      (float64(canvasH) - float64(h)*scale) / 2,
		Width:  float64(w),
		Height: float64(h),
		ScaleX: scale,
		ScaleY: scale,
	}
}

func mediaEndMs(durationSec float64, maxTimeMs int) int {
	if durationSec <= 0 {
		return maxTimeMs
	}
	end := int(durationSec * 1000)
	if end > maxTimeMs {
		end = maxTimeMs
	}
	return end
}

func (s *Store) loadImage(path string) (image.Image, error) {
	if img, ok := s.imageCache[path]; ok {
		return img, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	s.imageCache[path] = img
	return img, nil
}
