package sqlinline

const QInsertGeneration = `--sql 7bd4a294-0733-45e0-a302-635ed2ddc20b
with
ins as (
    insert into generations (id, prompt, aspect_ratio, source_image_id, created_at)
    values ($1::uuid, $2::text, $3::text, nullif($4::text, '')::uuid, $5::timestamptz)
    returning id
),
src as (
    insert into generation_sources (generation_id, image_id, rank)
    select (select id from ins), u.image_id::uuid, (u.ord - 1)::int
    from unnest($6::text[]) with ordinality as u(image_id, ord)
)
select id::text from ins;
`

const QSelectGenerationByID = `--sql d8e2643b-dcd8-46b4-a049-eee336071cd8
select
    g.id::text,
    g.prompt,
    g.aspect_ratio,
    g.output_image_path,
    g.source_image_id::text,
    g.created_at,
    g.started_at,
    g.completed_at,
    array(
        select gs.image_id::text
        from generation_sources gs
        where gs.generation_id = g.id
        order by gs.rank
    ) as source_image_ids
from generations g
where g.id = $1::uuid;
`

const QListGenerations = `--sql 99a2a79d-ce5b-4f68-8c0d-e7066f84da7c
select
    g.id::text,
    g.prompt,
    g.aspect_ratio,
    g.output_image_path,
    g.source_image_id::text,
    g.created_at,
    g.started_at,
    g.completed_at,
    array(
        select gs.image_id::text
        from generation_sources gs
        where gs.generation_id = g.id
        order by gs.rank
    ) as source_image_ids
from generations g
order by g.created_at desc, g.seq desc
limit $1::int offset $2::int;
`

const QMarkGenerationStarted = `--sql 8d0a1fa9-3a7f-4952-bbf7-4496e47f5767
update generations
set started_at = coalesce(started_at, now())
where id = $1::uuid;
`

// QCompleteGeneration reports (found, updated); output is written only while unset.
const QCompleteGeneration = `--sql 9efeee08-8b5b-467f-80ff-b178f1eb4268
with
target as (
    select id, output_image_path
    from generations
    where id = $1::uuid
),
upd as (
    update generations g
    set output_image_path = $2::text,
        completed_at = now()
    from target
    where g.id = target.id
      and target.output_image_path is null
    returning g.id
)
select exists (select 1 from target), exists (select 1 from upd);
`

const QDeleteGeneration = `--sql 559e5987-990d-4308-abba-e2ef084b3ce4
delete from generations
where id = $1::uuid
returning id::text, prompt, aspect_ratio, output_image_path, source_image_id::text, created_at, started_at, completed_at;
`

const QFailPendingGenerations = `--sql 8e970955-5c04-4724-8fe4-ee1feec04a06
update generations
set output_image_path = $1::text,
    completed_at = now()
where output_image_path is null;
`
