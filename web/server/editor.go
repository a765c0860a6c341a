package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
	"github.com/df07/go-interactive-pathtracer/pkg/loaders"
	"github.com/df07/go-interactive-pathtracer/pkg/scene"
	"github.com/labstack/echo/v4"
)

// Vec is a JSON-friendly vector
type Vec [3]float64

func (v Vec) toVec3() core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

func fromVec3(v core.Vec3) Vec {
	return Vec{v.X, v.Y, v.Z}
}

// CheckerJSON describes a checkerboard texture
type CheckerJSON struct {
	ColorA Vec     `json:"colorA"`
	ColorB Vec     `json:"colorB"`
	Scale  float64 `json:"scale"`
}

// MaterialJSON describes a material
type MaterialJSON struct {
	Color            Vec          `json:"color"`
	Specularity      float64      `json:"specularity"`
	Roughness        float64      `json:"roughness"`
	Metalness        float64      `json:"metalness"`
	IoR              float64      `json:"ior"`
	Density          float64      `json:"density"`
	Emissive         bool         `json:"emissive"`
	EmissiveStrength float64      `json:"emissiveStrength"`
	Dielectric       bool         `json:"dielectric"`
	Checker          *CheckerJSON `json:"checker,omitempty"`
}

func (m MaterialJSON) toMaterial() scene.Material {
	mat := scene.Material{
		Color:            m.Color.toVec3(),
		Specularity:      m.Specularity,
		Roughness:        m.Roughness,
		Metalness:        m.Metalness,
		IoR:              m.IoR,
		Density:          m.Density,
		IsEmissive:       m.Emissive,
		EmissiveStrength: m.EmissiveStrength,
		IsDielectric:     m.Dielectric,
	}
	if mat.IoR <= 0 {
		mat.IoR = 1
	}
	if mat.IsEmissive && mat.EmissiveStrength == 0 {
		mat.EmissiveStrength = 1
	}
	if m.Checker != nil {
		mat.Texture = scene.NewCheckerBoard(m.Checker.ColorA.toVec3(), m.Checker.ColorB.toVec3(), m.Checker.Scale)
	}
	return mat
}

func materialToJSON(m *scene.Material) MaterialJSON {
	out := MaterialJSON{
		Color:            fromVec3(m.Color),
		Specularity:      m.Specularity,
		Roughness:        m.Roughness,
		Metalness:        m.Metalness,
		IoR:              m.IoR,
		Density:          m.Density,
		Emissive:         m.IsEmissive,
		EmissiveStrength: m.EmissiveStrength,
		Dielectric:       m.IsDielectric,
	}
	if c, ok := m.Texture.(*scene.CheckerBoard); ok {
		out.Checker = &CheckerJSON{ColorA: fromVec3(c.ColorA), ColorB: fromVec3(c.ColorB), Scale: c.Scale}
	}
	return out
}

// PrimitiveJSON describes a primitive. Which geometry fields are used depends on Type.
type PrimitiveJSON struct {
	Index    int          `json:"index"`
	Type     string       `json:"type"`
	Name     string       `json:"name"`
	Position Vec          `json:"position"`         // Sphere center, infinite plane point
	Radius   float64      `json:"radius,omitempty"` // Sphere
	Normal   Vec          `json:"normal"`           // Infinite plane
	Points   []Vec        `json:"points,omitempty"` // Plane corners or triangle vertices
	Material MaterialJSON `json:"material"`
}

func (p PrimitiveJSON) toPrimitive() (scene.Primitive, error) {
	ptype, err := scene.ParsePrimitiveType(p.Type)
	if err != nil {
		return nil, err
	}

	name := p.Name
	if name == "" {
		name = p.Type
	}
	mat := p.Material.toMaterial()

	switch ptype {
	case scene.SphereType:
		if p.Radius <= 0 {
			return nil, fmt.Errorf("sphere radius must be positive")
		}
		return scene.NewSphere(name, p.Position.toVec3(), p.Radius, mat), nil
	case scene.PlaneInfiniteType:
		if p.Normal == (Vec{}) {
			return nil, fmt.Errorf("plane normal must be non-zero")
		}
		return scene.NewPlaneInfinite(name, p.Position.toVec3(), p.Normal.toVec3(), mat), nil
	}

	if len(p.Points) != 3 {
		return nil, fmt.Errorf("%s needs exactly 3 points, got %d", p.Type, len(p.Points))
	}
	a, b, c := p.Points[0].toVec3(), p.Points[1].toVec3(), p.Points[2].toVec3()
	if ptype == scene.PlaneType {
		return scene.NewPlane(name, a, b, c, mat), nil
	}
	return scene.NewTriangle(name, a, b, c, mat), nil
}

func primitiveToJSON(index int, p scene.Primitive) PrimitiveJSON {
	obj := p.Object()
	out := PrimitiveJSON{
		Index:    index,
		Type:     p.Type().String(),
		Name:     obj.Name,
		Position: fromVec3(obj.Position),
		Material: materialToJSON(&obj.Material),
	}

	switch prim := p.(type) {
	case *scene.Sphere:
		out.Radius = prim.Radius
	case *scene.Plane:
		out.Points = []Vec{fromVec3(prim.P0), fromVec3(prim.P1), fromVec3(prim.P2)}
	case *scene.PlaneInfinite:
		out.Normal = fromVec3(prim.Normal)
	case *scene.Triangle:
		out.Points = []Vec{fromVec3(prim.V0), fromVec3(prim.V1), fromVec3(prim.V2)}
	}
	return out
}

// SkydomeJSON describes the environment
type SkydomeJSON struct {
	Type               string  `json:"type"` // "gradient", "image" or "none"
	Bottom             Vec     `json:"bottom"`
	Top                Vec     `json:"top"`
	Path               string  `json:"path,omitempty"`
	Orientation        float64 `json:"orientation"`
	Emission           float64 `json:"emission"`
	BackgroundStrength float64 `json:"backgroundStrength"`
}

func skydomeToJSON(sky *scene.Skydome) SkydomeJSON {
	if sky == nil {
		return SkydomeJSON{Type: "none"}
	}

	out := SkydomeJSON{
		Orientation:        sky.Orientation,
		Emission:           sky.Emission,
		BackgroundStrength: sky.BackgroundStrength,
	}
	switch src := sky.Source.(type) {
	case *scene.GradientSky:
		out.Type = "gradient"
		out.Bottom = fromVec3(src.Bottom)
		out.Top = fromVec3(src.Top)
	case *scene.EquirectMap:
		out.Type = "image"
		out.Path = src.Source
	default:
		out.Type = "none"
	}
	return out
}

// CameraJSON describes the camera placement
type CameraJSON struct {
	Position      Vec `json:"position"`
	ViewDirection Vec `json:"viewDirection"`
}

// SceneJSON is the response of GET /api/scene
type SceneJSON struct {
	Name       string          `json:"name"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Camera     CameraJSON      `json:"camera"`
	Skydome    SkydomeJSON     `json:"skydome"`
	MaxDepth   int             `json:"maxDepth"`
	Primitives []PrimitiveJSON `json:"primitives"`
}

func (s *Server) handlePresets(c echo.Context) error {
	return c.JSON(http.StatusOK, scene.Presets())
}

func (s *Server) handleScene(c echo.Context) error {
	var out SceneJSON
	s.renderer.ViewScene(func(sc *scene.Scene) {
		out.Name = sc.Name
		out.Width, out.Height = sc.Camera.Resolution()
		out.Camera = CameraJSON{
			Position:      fromVec3(sc.Camera.Position),
			ViewDirection: fromVec3(sc.Camera.ViewDirection),
		}
		out.Skydome = skydomeToJSON(sc.Skydome)
		out.MaxDepth = sc.SamplingConfig.MaxDepth

		out.Primitives = make([]PrimitiveJSON, 0, len(sc.Primitives()))
		for i, p := range sc.Primitives() {
			out.Primitives = append(out.Primitives, primitiveToJSON(i, p))
		}
	})
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleExport(c echo.Context) error {
	var (
		buf bytes.Buffer
		err error
	)
	s.renderer.ViewScene(func(sc *scene.Scene) {
		err = scene.Save(&buf, sc)
	})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "%v", err)
	}
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

func (s *Server) handleLoadPreset(c echo.Context) error {
	var req struct {
		Preset string `json:"preset"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to parse request: %v", err)
	}

	var width, height int
	s.renderer.ViewScene(func(sc *scene.Scene) {
		width, height = sc.Camera.Resolution()
	})

	preset, err := scene.NewPreset(req.Preset, width, height)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "%v", err)
	}

	s.logger.Infof("Loading preset %q", req.Preset)
	s.renderer.Scene().Replace(preset)
	return accepted(c)
}

func (s *Server) handlePlaceCamera(c echo.Context) error {
	var req CameraJSON
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to parse request: %v", err)
	}
	if req.ViewDirection == (Vec{}) {
		return errorJSON(c, http.StatusBadRequest, "view direction must be non-zero")
	}

	s.renderer.Scene().PlaceCamera(req.Position.toVec3(), req.ViewDirection.toVec3())
	return accepted(c)
}

var moveDirections = map[string]scene.MoveDirection{
	"forward":  scene.MoveForward,
	"backward": scene.MoveBackward,
	"left":     scene.MoveLeft,
	"right":    scene.MoveRight,
	"up":       scene.MoveUp,
	"down":     scene.MoveDown,
}

var speedModifiers = map[string]scene.SpeedModifier{
	"":       scene.SpeedNormal,
	"normal": scene.SpeedNormal,
	"boost":  scene.SpeedBoost,
	"slow":   scene.SpeedSlow,
}

func (s *Server) handleMoveCamera(c echo.Context) error {
	var req struct {
		Direction string  `json:"direction"`
		Amount    float64 `json:"amount"`
		Modifier  string  `json:"modifier"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to parse request: %v", err)
	}

	direction, ok := moveDirections[req.Direction]
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "unknown direction %q", req.Direction)
	}
	modifier, ok := speedModifiers[req.Modifier]
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "unknown modifier %q", req.Modifier)
	}
	if req.Amount == 0 {
		req.Amount = 1
	}

	s.renderer.Scene().MoveCamera(direction, req.Amount, modifier)
	return accepted(c)
}

func (s *Server) handleRotateCamera(c echo.Context) error {
	var req struct {
		Yaw   float64 `json:"yaw"`
		Pitch float64 `json:"pitch"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to parse request: %v", err)
	}

	s.renderer.Scene().RotateCamera(req.Yaw, req.Pitch)
	return accepted(c)
}

func (s *Server) handleAddPrimitive(c echo.Context) error {
	var req PrimitiveJSON
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to parse request: %v", err)
	}

	p, err := req.toPrimitive()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "%v", err)
	}

	s.logger.Infof("Adding %s %q", p.Type(), p.Object().Name)
	s.renderer.Scene().AddPrimitive(p)
	return accepted(c)
}

// primitiveIndex parses the :index path parameter and checks it against the
// live scene. On failure the error response has already been written.
func (s *Server) primitiveIndex(c echo.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid index %q", c.Param("index"))
		return 0, false
	}

	count := 0
	s.renderer.ViewScene(func(sc *scene.Scene) {
		count = len(sc.Primitives())
	})
	if index < 0 || index >= count {
		errorJSON(c, http.StatusNotFound, "no primitive at index %d", index)
		return 0, false
	}
	return index, true
}

func (s *Server) handleSetMaterial(c echo.Context) error {
	var req MaterialJSON
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to parse request: %v", err)
	}

	index, ok := s.primitiveIndex(c)
	if !ok {
		return nil
	}

	s.renderer.Scene().SetMaterial(index, req.toMaterial())
	return accepted(c)
}

func (s *Server) handleDeletePrimitive(c echo.Context) error {
	index, ok := s.primitiveIndex(c)
	if !ok {
		return nil
	}

	s.renderer.Scene().MarkForDelete(index)
	return accepted(c)
}

func (s *Server) handleSkydome(c echo.Context) error {
	req := SkydomeJSON{Emission: 1, BackgroundStrength: 1}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to parse request: %v", err)
	}

	var source scene.Environment
	switch req.Type {
	case "gradient":
		source = scene.NewGradientSky(req.Bottom.toVec3(), req.Top.toVec3())
	case "image":
		data, err := loaders.LoadEnvironment(req.Path)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "%v", err)
		}
		env := scene.NewEquirectMap(data.Width, data.Height, data.Pixels)
		env.Source = req.Path
		source = env
	case "none":
		s.renderer.Scene().SetSkydome(nil)
		return accepted(c)
	default:
		return errorJSON(c, http.StatusBadRequest, "unknown skydome type %q", req.Type)
	}

	sky := scene.NewSkydome(source)
	sky.Orientation = req.Orientation
	sky.Emission = req.Emission
	sky.BackgroundStrength = req.BackgroundStrength

	s.renderer.Scene().SetSkydome(sky)
	return accepted(c)
}

func (s *Server) handleResize(c echo.Context) error {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "failed to parse request: %v", err)
	}

	if err := s.renderer.Resize(req.Width, req.Height); err != nil {
		return errorJSON(c, http.StatusBadRequest, "%v", err)
	}
	return accepted(c)
}

func (s *Server) handleRestart(c echo.Context) error {
	s.renderer.RestartSampling()
	return accepted(c)
}

func (s *Server) handlePick(c echo.Context) error {
	x, errX := strconv.Atoi(c.QueryParam("x"))
	y, errY := strconv.Atoi(c.QueryParam("y"))
	if errX != nil || errY != nil {
		return errorJSON(c, http.StatusBadRequest, "x and y must be integers")
	}

	index, hit := s.renderer.Pick(x, y)
	if !hit {
		return c.JSON(http.StatusOK, map[string]interface{}{"hit": false})
	}

	var prim PrimitiveJSON
	found := false
	s.renderer.ViewScene(func(sc *scene.Scene) {
		if index < len(sc.Primitives()) {
			prim = primitiveToJSON(index, sc.Primitives()[index])
			found = true
		}
	})
	if !found {
		return c.JSON(http.StatusOK, map[string]interface{}{"hit": false})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"hit":       true,
		"primitive": prim,
	})
}
