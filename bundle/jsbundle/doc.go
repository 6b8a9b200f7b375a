// Package jsbundle loads a compiled CommonJS server bundle and exposes its
// exports as a [prerender.Bundle].
//
// The bundle runs in an embedded JavaScript runtime on a single event loop,
// so timers, promises and async functions behave as they would under Node.
// Export workers call into the loop concurrently; the loop interleaves their
// renders while each worker waits for its own page.
//
// A bundle is expected to look like:
//
//	exports.routes = ["/", "/about/"];
//	exports.render = async (req, res) => {
//	  const html = await renderPage(req.url);
//	  res.json({ html, data: await loadData(req.url) });
//	};
//
// routes may also be a function, sync or async, returning the list. An
// export missing from the module object is looked up on exports.default.
package jsbundle
