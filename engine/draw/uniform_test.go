package draw

import (
	"testing"

	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/math"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

func TestNewSceneData(t *testing.T) {
	projection := math.NewMat4Scale(math.NewVec3(2, 2, 2))
	scene := NewSceneData(projection)

	sun := math.NewVec3(-1, -1, 2).Normalize()
	if !scene.SunDirection.Compare(sun.ToVec4(0), 1e-6) {
		t.Errorf("sun direction = %v", scene.SunDirection)
	}
	if !scene.SunColor.Compare(math.NewVec4(0.9, 0.9, 0.9, 1), 1e-6) {
		t.Errorf("sun color = %v", scene.SunColor)
	}
	if !scene.SunAmbient.Compare(math.NewVec4(0.2, 0.2, 0.2, 1), 1e-6) {
		t.Errorf("ambient = %v", scene.SunAmbient)
	}
	if !scene.View.Compare(math.NewMat4Identity(), 0) {
		t.Error("view is not identity")
	}
	if scene.Projection != projection {
		t.Error("projection not taken from the argument")
	}
}

func TestUniformBufferSeedsEveryFrame(t *testing.T) {
	r, display, device := newDisplay(t, 3)
	ub, err := ecs.Emplace(r, display, UniformBuffer{})
	if err != nil {
		t.Fatal(err)
	}
	if !ecs.Has[metadata.SceneData](r, display) {
		t.Fatal("scene data not added")
	}
	if len(ub.Frames) != 3 {
		t.Fatalf("frames = %d", len(ub.Frames))
	}
	for i, a := range ub.Frames {
		if device.Descriptor(uint32(i), metadata.UniformBinding) != a.Buffer {
			t.Errorf("frame %d binding 0 not set", i)
		}
		got := decode[metadata.SceneData](readBack(t, device, a.Memory))
		if got[0] != NewSceneData(device.ProjectionMatrix()) {
			t.Errorf("frame %d not seeded with defaults", i)
		}
	}
}

func TestUniformBufferKeepsExistingSceneData(t *testing.T) {
	r, display, device := newDisplay(t, 2)
	custom := NewSceneData(math.NewMat4Identity())
	custom.SunColor = math.NewVec4(1, 0, 0, 1)
	ecs.Emplace(r, display, custom)

	ub, _ := ecs.Emplace(r, display, UniformBuffer{})
	got := decode[metadata.SceneData](readBack(t, device, ub.Frames[1].Memory))
	if got[0].SunColor != custom.SunColor {
		t.Errorf("sun color = %v, want the attached record", got[0].SunColor)
	}
}

func TestUniformUpdateFollowsCamera(t *testing.T) {
	r, display, device := newDisplay(t, 3)
	eye := math.NewVec3(0, 45, -5)
	view := math.NewMat4LookAtLH(eye, math.NewVec3(0, 0, 0), math.NewVec3(0, 1, 0))

	camera := r.Create()
	ecs.Emplace(r, camera, Camera{World: view.Inverse()})
	ecs.Patch[RenderContext](r, display, func(rc *RenderContext) { rc.Camera = camera })
	ub, _ := ecs.Emplace(r, display, UniformBuffer{})

	device.SetCurrentFrame(2)
	if err := ecs.Patch[UniformBuffer](r, display); err != nil {
		t.Fatal(err)
	}

	got := decode[metadata.SceneData](readBack(t, device, ub.Frames[2].Memory))[0]
	if !got.CameraPosition.Compare(eye.ToVec4(1), 1e-3) {
		t.Errorf("camera position = %v, want %v", got.CameraPosition, eye)
	}
	if !got.View.Compare(view, 1e-3) {
		t.Errorf("view = %v, want %v", got.View, view)
	}
	for _, i := range []int{0, 1} {
		stale := decode[metadata.SceneData](readBack(t, device, ub.Frames[i].Memory))[0]
		if stale.CameraPosition != math.NewVec4(0, 0, 0, 1) {
			t.Errorf("frame %d was rewritten", i)
		}
	}
}

func TestUniformBufferDestroy(t *testing.T) {
	r, display, device := newDisplay(t, 2)
	ecs.Emplace(r, display, UniformBuffer{})
	if err := ecs.Remove[UniformBuffer](r, display); err != nil {
		t.Fatal(err)
	}
	if err := ecs.Remove[UniformBuffer](r, display); err != nil {
		t.Fatal(err)
	}
	if device.LiveAllocations() != 0 {
		t.Errorf("live allocations = %d", device.LiveAllocations())
	}
}
