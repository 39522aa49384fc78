package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/storage-inspector/internal/models"
)

// Registrations are keyed by scope, which is unique per origin.
const listWorkersJS = `(async () => {
	if (!('serviceWorker' in navigator)) return [];
	const regs = await navigator.serviceWorker.getRegistrations();
	return regs.map(r => {
		const w = r.active || r.waiting || r.installing;
		return {
			id: r.scope,
			scriptURL: w ? w.scriptURL : '',
			status: w ? w.state : 'redundant',
			scope: r.scope,
		};
	});
})()`

const unregisterWorkerJS = `(async (id) => {
	if (!('serviceWorker' in navigator)) return false;
	const regs = await navigator.serviceWorker.getRegistrations();
	const reg = regs.find(r => r.scope === id);
	return reg ? await reg.unregister() : false;
})(%s)`

const listCachesJS = `(async () => {
	if (!('caches' in window)) return [];
	const names = await caches.keys();
	const out = [];
	for (const name of names) {
		const cache = await caches.open(name);
		const reqs = await cache.keys();
		out.push({name, urls: reqs.map(r => r.url)});
	}
	return out;
})()`

const deleteCacheJS = `(async (name) => {
	if (!('caches' in window)) return false;
	return await caches.delete(name);
})(%s)`

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

type workerRegistry struct{ h *Host }

func (r workerRegistry) ServiceWorkers(ctx context.Context) ([]models.ServiceWorker, error) {
	workers := []models.ServiceWorker{}
	if err := r.h.run(ctx, chromedp.Evaluate(listWorkersJS, &workers, awaitPromise)); err != nil {
		return nil, fmt.Errorf("list service workers: %w", err)
	}
	return workers, nil
}

func (r workerRegistry) Unregister(ctx context.Context, id string) error {
	var ok bool
	expr := fmt.Sprintf(unregisterWorkerJS, quote(id))
	if err := r.h.run(ctx, chromedp.Evaluate(expr, &ok, awaitPromise)); err != nil {
		return fmt.Errorf("unregister service worker %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("service worker %s: %w", id, models.ErrNotFound)
	}
	return nil
}

type cacheStorage struct{ h *Host }

func (s cacheStorage) Caches(ctx context.Context) ([]models.Cache, error) {
	caches := []models.Cache{}
	if err := s.h.run(ctx, chromedp.Evaluate(listCachesJS, &caches, awaitPromise)); err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	return caches, nil
}

func (s cacheStorage) DeleteCache(ctx context.Context, name string) error {
	var ok bool
	expr := fmt.Sprintf(deleteCacheJS, quote(name))
	if err := s.h.run(ctx, chromedp.Evaluate(expr, &ok, awaitPromise)); err != nil {
		return fmt.Errorf("delete cache %s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("cache %s: %w", name, models.ErrNotFound)
	}
	return nil
}
