// Package gpu owns the Vulkan instance, the chosen physical device, the
// logical device and its queues.
package gpu

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_portability_subset"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/rovski/rovski/internal/lifetime"
)

// VK_KHR_portability_enumeration has no binding in the pinned extensions
// module, so it is enabled by name.
const (
	portabilityEnumerationExtension = "VK_KHR_portability_enumeration"

	instanceCreateEnumeratePortability core1_0.InstanceCreateFlags = 0x1
)

// DeviceExtensions are required on every candidate device.
var DeviceExtensions = []string{khr_swapchain.ExtensionName}

// Surfacer is the part of the window the device context needs.
type Surfacer interface {
	VulkanInstanceExtensions() []string
	CreateSurface(instance core1_0.Instance) (khr_surface.Surface, error)
}

// Options configure Initialize.
type Options struct {
	ApplicationName string

	// RequiredExtensions are instance extensions needed beyond the ones the
	// window asks for.
	RequiredExtensions []string

	// EnableDiagnostics turns on the validation layer and routes its
	// messages to the log.
	EnableDiagnostics bool
}

// Context is the device-level state shared by every other component.
type Context struct {
	Instance       core1_0.Instance
	Surface        khr_surface.Surface
	PhysicalDevice core1_0.PhysicalDevice
	Device         core1_0.Device

	Families      QueueFamilyIndices
	GraphicsQueue core1_0.Queue
	PresentQueue  core1_0.Queue
	TransferQueue core1_0.Queue

	debugMessenger ext_debug_utils.DebugUtilsMessenger
	arena          *lifetime.Arena
}

// Initialize creates the instance, surface and logical device. On failure
// everything created so far is released before returning.
func Initialize(loader core.Loader, window Surfacer, opts Options) (ctx *Context, err error) {
	ctx = &Context{arena: lifetime.NewArena("device")}
	defer func() {
		if err != nil {
			ctx.arena.Release()
			ctx = nil
		}
	}()

	if err = ctx.createInstance(loader, window, opts); err != nil {
		return ctx, err
	}

	if opts.EnableDiagnostics {
		if err = ctx.setupDebugMessenger(); err != nil {
			return ctx, err
		}
	}

	if err = ctx.createSurface(window); err != nil {
		return ctx, err
	}

	if err = ctx.pickPhysicalDevice(); err != nil {
		return ctx, err
	}

	if err = ctx.createLogicalDevice(); err != nil {
		return ctx, err
	}

	return ctx, nil
}

// Destroy releases the device, messenger, surface and instance. Every
// object created from the device must already be gone.
func (c *Context) Destroy() {
	c.arena.Release()
}

// WaitIdle blocks until every queue on the device has drained.
func (c *Context) WaitIdle() error {
	_, err := c.Device.WaitIdle()
	return errors.Wrap(err, "wait for device idle")
}

// Anisotropy returns the maximum sampler anisotropy of the device.
func (c *Context) Anisotropy() (float32, error) {
	properties, err := c.PhysicalDevice.Properties()
	if err != nil {
		return 0, errors.Wrap(err, "read device properties")
	}
	return properties.Limits.MaxSamplerAnisotropy, nil
}

// instanceExtensions checks that every required extension is available and
// adds portability enumeration, with its create flag, when the loader has it.
func instanceExtensions(required []string, has func(string) bool) ([]string, core1_0.InstanceCreateFlags, error) {
	var flags core1_0.InstanceCreateFlags
	var names []string

	for _, ext := range required {
		if !has(ext) {
			return nil, 0, errors.Mark(errors.Newf("createinstance: missing extension %s", ext), ErrInitialization)
		}
		names = append(names, ext)
	}

	if has(portabilityEnumerationExtension) {
		names = append(names, portabilityEnumerationExtension)
		flags |= instanceCreateEnumeratePortability
	}

	return names, flags, nil
}

func (c *Context) createInstance(loader core.Loader, window Surfacer, opts Options) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "Rovski",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := loader.AvailableExtensions()
	if err != nil {
		return InitError(err, "enumerate instance extensions")
	}

	required := append([]string{}, window.VulkanInstanceExtensions()...)
	required = append(required, opts.RequiredExtensions...)
	if opts.EnableDiagnostics {
		required = append(required, ext_debug_utils.ExtensionName)
	}

	instanceOptions.EnabledExtensionNames, instanceOptions.Flags, err = instanceExtensions(required, func(name string) bool {
		_, ok := extensions[name]
		return ok
	})
	if err != nil {
		return err
	}

	if opts.EnableDiagnostics {
		layers, _, err := loader.AvailableLayers()
		if err != nil {
			return InitError(err, "enumerate instance layers")
		}

		log.WithField("count", len(layers)).Debug("instance layers available")
		for _, layer := range ValidationLayers {
			_, hasValidation := layers[layer]
			if !hasValidation {
				return errors.Mark(
					errors.Newf("createInstance: cannot add validation- layer %s not available- install LunarG Vulkan SDK", layer),
					ErrInitialization)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		instanceOptions.Next = debugMessengerOptions()
	}

	log.WithField("extensions", instanceOptions.EnabledExtensionNames).Debug("creating instance")
	c.Instance, _, err = loader.CreateInstance(nil, instanceOptions)
	if err != nil {
		return InitError(err, "create instance")
	}
	c.arena.Track("instance", func() { c.Instance.Destroy(nil) })

	return nil
}

func (c *Context) setupDebugMessenger() error {
	var err error
	debugLoader := ext_debug_utils.CreateExtensionFromInstance(c.Instance)
	c.debugMessenger, _, err = debugLoader.CreateDebugUtilsMessenger(c.Instance, nil, debugMessengerOptions())
	if err != nil {
		return InitError(err, "create debug messenger")
	}
	c.arena.Track("debug messenger", func() { c.debugMessenger.Destroy(nil) })

	return nil
}

func (c *Context) createSurface(window Surfacer) error {
	surface, err := window.CreateSurface(c.Instance)
	if err != nil {
		return InitError(err, "create window surface")
	}

	c.Surface = surface
	c.arena.Track("surface", func() { c.Surface.Destroy(nil) })
	return nil
}

func (c *Context) findQueueFamilies(device core1_0.PhysicalDevice) (QueueFamilyIndices, error) {
	var flags []core1_0.QueueFlags
	for _, queueFamily := range device.QueueFamilyProperties() {
		flags = append(flags, queueFamily.QueueFlags)
	}

	return FindQueueFamilies(flags, func(family int) (bool, error) {
		supported, _, err := c.Surface.PhysicalDeviceSurfaceSupport(device, family)
		return supported, err
	})
}

func (c *Context) describe(device core1_0.PhysicalDevice) (Candidate, error) {
	var candidate Candidate

	properties, err := device.Properties()
	if err != nil {
		return candidate, err
	}
	candidate.Name = properties.DriverName
	candidate.Discrete = properties.DriverType == core1_0.PhysicalDeviceTypeDiscreteGPU

	features := device.Features()
	candidate.GeometryShader = features.GeometryShader
	candidate.SamplerAnisotropy = features.SamplerAnisotropy

	candidate.Queues, err = c.findQueueFamilies(device)
	if err != nil {
		return candidate, err
	}

	extensions, _, err := device.EnumerateDeviceExtensionProperties()
	if err != nil {
		return candidate, err
	}
	missing := missingExtensions(DeviceExtensions, func(name string) bool {
		_, ok := extensions[name]
		return ok
	})
	candidate.ExtensionsSupported = len(missing) == 0

	if candidate.ExtensionsSupported {
		formats, _, err := c.Surface.PhysicalDeviceSurfaceFormats(device)
		if err != nil {
			return candidate, err
		}
		presentModes, _, err := c.Surface.PhysicalDeviceSurfacePresentModes(device)
		if err != nil {
			return candidate, err
		}
		candidate.SurfaceFormats = len(formats)
		candidate.PresentModes = len(presentModes)
	}

	return candidate, nil
}

func (c *Context) pickPhysicalDevice() error {
	physicalDevices, _, err := c.Instance.EnumeratePhysicalDevices()
	if err != nil {
		return InitError(err, "enumerate physical devices")
	}

	var candidates []Candidate
	for _, device := range physicalDevices {
		candidate, err := c.describe(device)
		if err != nil {
			return InitError(err, "describe physical device")
		}

		log.WithFields(log.Fields{
			"device": candidate.Name,
			"score":  Score(candidate),
		}).Debug("rated physical device")
		candidates = append(candidates, candidate)
	}

	best, err := Select(candidates)
	if err != nil {
		return err
	}

	c.PhysicalDevice = physicalDevices[best]
	c.Families = candidates[best].Queues
	log.WithField("device", candidates[best].Name).Info("selected physical device")

	return nil
}

func (c *Context) createLogicalDevice() error {
	if !c.Families.IsComplete() {
		return errors.WithStack(ErrIncompleteQueueFamilies)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range c.Families.Unique() {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, DeviceExtensions...)

	// Required on portability implementations such as MoltenVK
	extensions, _, err := c.PhysicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return InitError(err, "enumerate device extensions")
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	c.Device, _, err = c.PhysicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueFamilyOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return InitError(err, "create logical device")
	}
	c.arena.Track("logical device", func() { c.Device.Destroy(nil) })

	c.GraphicsQueue = c.Device.GetQueue(*c.Families.GraphicsFamily, 0)
	c.PresentQueue = c.Device.GetQueue(*c.Families.PresentFamily, 0)
	c.TransferQueue = c.Device.GetQueue(*c.Families.TransferFamily, 0)

	log.WithFields(log.Fields{
		"graphics": *c.Families.GraphicsFamily,
		"present":  *c.Families.PresentFamily,
		"transfer": *c.Families.TransferFamily,
	}).Info("created logical device")

	return nil
}
