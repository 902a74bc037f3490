package rxdsp

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// AudioCallback receives each captured block of 16 bit mono samples. The
// slice is only valid during the call.
type AudioCallback func(samples []int16)

// AudioCapture records from a sound card.
type AudioCapture struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	SampleRate int
	Callback   AudioCallback
}

// NewAudioCapture opens the first capture device whose name contains
// deviceName, or the default device when deviceName is empty.
func NewAudioCapture(sampleRate int, deviceName string, callback AudioCallback, log *slog.Logger) (*AudioCapture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	ac := &AudioCapture{
		ctx:        ctx,
		SampleRate: sampleRate,
		Callback:   callback,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if deviceName != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err != nil {
			log.Warn("cannot list capture devices", "err", err)
		}
		found := false
		for _, info := range infos {
			if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(deviceName)) {
				deviceConfig.Capture.DeviceID = info.ID.Pointer()
				log.Info("audio device selected", "name", info.Name())
				found = true
				break
			}
		}
		if !found {
			log.Warn("audio device not found, using default", "want", deviceName)
		}
	}

	onRecvFrames := func(_, input []byte, frames uint32) {
		if ac.Callback == nil || len(input) < 2 {
			return
		}
		n := min(int(frames), len(input)/2)
		ac.Callback(unsafe.Slice((*int16)(unsafe.Pointer(&input[0])), n))
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("init audio device: %w", err)
	}
	ac.device = device
	log.Info("audio device initialized", "rate", device.SampleRate())
	return ac, nil
}

func (ac *AudioCapture) Start() error {
	if ac.device == nil {
		return errors.New("audio device not initialized")
	}
	return ac.device.Start()
}

// Stop stops capture and releases the device.
func (ac *AudioCapture) Stop() {
	if ac.device != nil {
		ac.device.Uninit()
		ac.device = nil
	}
	if ac.ctx != nil {
		_ = ac.ctx.Uninit()
		ac.ctx.Free()
		ac.ctx = nil
	}
}
