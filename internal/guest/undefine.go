package guest

import (
	"github.com/digitalocean/go-libvirt"
	"go.uber.org/zap"
)

// DeleteConfiguration undefines the domain, removing any managed save image.
//
// The most capable method the daemon supports is used:
//  1. undefine with VIR_DOMAIN_UNDEFINE_MANAGED_SAVE
//  2. if that fails at the domain level, plain undefine
//  3. if the flag is unsupported, remove the managed save image directly
//     (skipped when that is unsupported too), then plain undefine
//
// Only an error from the final undefine call is returned.
func (g *Guest) DeleteConfiguration() error {
	err := g.client.DomainUndefineFlags(g.dom, libvirt.DomainUndefineManagedSave)
	switch classify(err) {
	case attemptSucceeded:
		return nil
	case attemptFailed:
		g.logger.Debug("Error from libvirt during undefine with flags, retrying with undefine",
			zap.Int32("id", g.dom.ID), zap.Error(err))
	case attemptUnsupported:
		g.removeManagedSaveImage()
	}
	return g.client.DomainUndefine(g.dom)
}

// removeManagedSaveImage deletes the managed save image if one exists. It
// never fails; an undefine without the image removed is still attempted.
func (g *Guest) removeManagedSaveImage() {
	has, err := g.client.DomainHasManagedSaveImage(g.dom, 0)
	switch classify(err) {
	case attemptUnsupported:
		return
	case attemptFailed:
		g.logger.Warn("Unable to check for a managed save image", zap.Error(err))
		return
	}
	if has != 1 {
		return
	}

	err = g.client.DomainManagedSaveRemove(g.dom, 0)
	if classify(err) == attemptFailed {
		g.logger.Warn("Unable to remove managed save image", zap.Error(err))
	}
}
